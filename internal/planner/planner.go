// Package planner turns today's visits into an ordered driving route.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"visitroute/internal/metrics"
	"visitroute/internal/model"
	"visitroute/internal/opt"
)

// PositionTimeout bounds a single device position fix.
const PositionTimeout = 15 * time.Second

var (
	ErrNoClientsScheduled    = errors.New("no clients scheduled for today")
	ErrMapServiceUnavailable = errors.New("map service not ready")
)

// PositionUnavailableError wraps a failed or timed out device position fix.
type PositionUnavailableError struct {
	Err error
}

func (e *PositionUnavailableError) Error() string {
	return fmt.Sprintf("current position unavailable: %v", e.Err)
}

func (e *PositionUnavailableError) Unwrap() error { return e.Err }

// DirectionsUnavailableError wraps a failed directions request.
type DirectionsUnavailableError struct {
	Err error
}

func (e *DirectionsUnavailableError) Error() string {
	return fmt.Sprintf("directions unavailable: %v", e.Err)
}

func (e *DirectionsUnavailableError) Unwrap() error { return e.Err }

// DirectionsRequest asks for a driving route through Stops in the given
// order. The last stop is the destination.
type DirectionsRequest struct {
	Origin model.GeoPoint
	Stops  []model.Client
}

type MapService interface {
	Ready() bool
	Geocode(ctx context.Context, c model.Client) (opt.GeocodeResult, error)
	Directions(ctx context.Context, req DirectionsRequest) ([]model.RouteLeg, error)
}

type Positioner interface {
	Position(ctx context.Context) (model.GeoPoint, error)
}

// PositionFunc adapts a function to Positioner.
type PositionFunc func(ctx context.Context) (model.GeoPoint, error)

func (f PositionFunc) Position(ctx context.Context) (model.GeoPoint, error) { return f(ctx) }

// Collection is the slice of the scheduler the planner depends on.
type Collection interface {
	TodayClients() []model.Client
	ApplyLocation(ctx context.Context, id string, loc model.GeoPoint, placeID string) error
}

type Planner struct {
	Clients Collection
	Maps    MapService
	Locale  opt.Locale
	Now     func() time.Time
}

func New(clients Collection, maps MapService, locale opt.Locale) *Planner {
	return &Planner{Clients: clients, Maps: maps, Locale: locale, Now: time.Now}
}

// PlanToday runs the daily pipeline once: resolve missing locations, fix
// the device position, order stops greedily and fetch driving legs.
// Locations merged before a failure stay persisted.
func (p *Planner) PlanToday(ctx context.Context, pos Positioner) (model.RoutePlan, error) {
	start := time.Now()
	plan, err := p.planToday(ctx, pos)
	metrics.RoutePlans.WithLabelValues(outcome(err)).Inc()
	metrics.RoutePlanDuration.Observe(time.Since(start).Seconds())
	return plan, err
}

func (p *Planner) planToday(ctx context.Context, pos Positioner) (model.RoutePlan, error) {
	today := p.Clients.TodayClients()
	if len(today) == 0 {
		return model.RoutePlan{}, ErrNoClientsScheduled
	}
	if p.Maps == nil || !p.Maps.Ready() {
		return model.RoutePlan{}, ErrMapServiceUnavailable
	}

	located, err := opt.ResolveLocations(ctx, today, p.Maps.Geocode, p.Clients.ApplyLocation)
	if err != nil {
		return model.RoutePlan{}, err
	}

	if pos == nil {
		return model.RoutePlan{}, &PositionUnavailableError{Err: errors.New("no position source")}
	}
	pctx, cancel := context.WithTimeout(ctx, PositionTimeout)
	origin, err := pos.Position(pctx)
	cancel()
	if err != nil {
		return model.RoutePlan{}, &PositionUnavailableError{Err: err}
	}

	ordered := opt.BuildRoute(located, origin)
	log.Printf("planner: %d stops, straight-line %.1f km", len(ordered), opt.StraightLineMeters(origin, ordered)/1000)

	legs, err := p.Maps.Directions(ctx, DirectionsRequest{Origin: origin, Stops: ordered})
	if err != nil {
		return model.RoutePlan{}, &DirectionsUnavailableError{Err: err}
	}

	o := origin
	return model.RoutePlan{
		Origin:    origin,
		Clients:   ordered,
		Legs:      legs,
		Summary:   opt.Summarize(legs, ordered, &o, p.Locale),
		PlannedAt: p.Now(),
	}, nil
}

func outcome(err error) string {
	var lre *opt.LocationResolutionError
	var pue *PositionUnavailableError
	var due *DirectionsUnavailableError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoClientsScheduled):
		return "no_clients"
	case errors.Is(err, ErrMapServiceUnavailable):
		return "map_unavailable"
	case errors.As(err, &lre):
		return "location_failed"
	case errors.As(err, &pue):
		return "position_failed"
	case errors.As(err, &due):
		return "directions_failed"
	default:
		return "error"
	}
}
