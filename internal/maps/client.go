// Package maps adapts the Google Maps web-service client to the calls the
// planner and the address form need.
package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	gmaps "googlemaps.github.io/maps"

	"visitroute/internal/metrics"
	"visitroute/internal/model"
	"visitroute/internal/opt"
	"visitroute/internal/planner"
)

var ErrNoAPIKey = errors.New("maps api key not configured")

// StatusError is a non-OK status reported by the map service.
type StatusError struct {
	API     string
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.API, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.API, e.Status)
}

type Client struct {
	Region   string
	Language string

	api *gmaps.Client
}

// New returns a client limited to rps requests per second. Extra options
// are applied last, so tests can point it at another base URL.
func New(apiKey, region, language string, rps float64, opts ...gmaps.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	if rps <= 0 {
		rps = 5
	}
	all := []gmaps.ClientOption{
		gmaps.WithAPIKey(apiKey),
		gmaps.WithRateLimit(int(math.Ceil(rps))),
		gmaps.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	}
	api, err := gmaps.NewClient(append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &Client{Region: strings.ToLower(region), Language: language, api: api}, nil
}

func (c *Client) Ready() bool { return c != nil && c.api != nil }

// Geocode resolves a client by stored place id when present, otherwise by
// free-text address biased to the configured region.
func (c *Client) Geocode(ctx context.Context, cl model.Client) (opt.GeocodeResult, error) {
	if !c.Ready() {
		return opt.GeocodeResult{}, ErrNoAPIKey
	}
	req := &gmaps.GeocodingRequest{Language: c.Language}
	if cl.PlaceID != "" {
		req.PlaceID = cl.PlaceID
	} else {
		req.Address = cl.Address
		req.Region = c.Region
	}
	res, err := c.api.Geocode(ctx, req)
	if err = observe("geocode", err); err != nil {
		return opt.GeocodeResult{}, err
	}
	if len(res) == 0 {
		return opt.GeocodeResult{}, &StatusError{API: "geocode", Status: "ZERO_RESULTS"}
	}
	loc := toPoint(res[0].Geometry.Location)
	if loc == nil {
		return opt.GeocodeResult{}, &StatusError{API: "geocode", Status: "NO_GEOMETRY"}
	}
	return opt.GeocodeResult{Location: *loc, PlaceID: res[0].PlaceID}, nil
}

// Directions requests a driving route through the stops in the given order.
// Tolls are avoided and waypoints are never reordered.
func (c *Client) Directions(ctx context.Context, req planner.DirectionsRequest) ([]model.RouteLeg, error) {
	if !c.Ready() {
		return nil, ErrNoAPIKey
	}
	if len(req.Stops) == 0 {
		return nil, errors.New("directions: no stops")
	}
	last := len(req.Stops) - 1
	dr := &gmaps.DirectionsRequest{
		Origin:      point(req.Origin),
		Destination: stop(req.Stops[last]),
		Mode:        gmaps.TravelModeDriving,
		Avoid:       []gmaps.Avoid{gmaps.AvoidTolls},
		Optimize:    false,
		Region:      c.Region,
		Language:    c.Language,
	}
	for _, s := range req.Stops[:last] {
		dr.Waypoints = append(dr.Waypoints, stop(s))
	}
	routes, _, err := c.api.Directions(ctx, dr)
	if err = observe("directions", err); err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, &StatusError{API: "directions", Status: "ZERO_RESULTS"}
	}
	legs := make([]model.RouteLeg, 0, len(routes[0].Legs))
	for _, l := range routes[0].Legs {
		legs = append(legs, model.RouteLeg{
			DistanceMeters:  l.Distance.Meters,
			DurationSeconds: int(l.Duration / time.Second),
			StartLocation:   toPoint(l.StartLocation),
		})
	}
	return legs, nil
}

// Autocomplete suggests addresses restricted to the configured country.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]model.Prediction, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return []model.Prediction{}, nil
	}
	if !c.Ready() {
		return nil, ErrNoAPIKey
	}
	req := &gmaps.PlaceAutocompleteRequest{Input: input, Language: c.Language}
	if c.Region != "" {
		req.Components = map[gmaps.Component][]string{gmaps.ComponentCountry: {c.Region}}
	}
	resp, err := c.api.PlaceAutocomplete(ctx, req)
	err = observe("autocomplete", err)
	var se *StatusError
	if errors.As(err, &se) && se.Status == "ZERO_RESULTS" {
		return []model.Prediction{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, model.Prediction{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out, nil
}

var detailFields = []gmaps.PlaceDetailsFieldMask{
	gmaps.PlaceDetailsFieldMaskPlaceID,
	gmaps.PlaceDetailsFieldMaskFormattedAddress,
	gmaps.PlaceDetailsFieldMaskGeometry,
}

// PlaceDetails turns an autocomplete selection into a structured place.
// A place without geometry is rejected.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (model.Place, error) {
	if !c.Ready() {
		return model.Place{}, ErrNoAPIKey
	}
	res, err := c.api.PlaceDetails(ctx, &gmaps.PlaceDetailsRequest{PlaceID: placeID, Language: c.Language, Fields: detailFields})
	if err = observe("details", err); err != nil {
		return model.Place{}, err
	}
	loc := toPoint(res.Geometry.Location)
	if loc == nil {
		return model.Place{}, &StatusError{API: "details", Status: "NO_GEOMETRY"}
	}
	id := res.PlaceID
	if id == "" {
		id = placeID
	}
	return model.Place{PlaceID: id, FormattedAddress: res.FormattedAddress, Location: loc}, nil
}

// observe counts the call and turns a service status failure, which the
// library reports as "maps: STATUS - message", into a StatusError.
func observe(api string, err error) error {
	if err == nil {
		metrics.MapsRequests.WithLabelValues(api, "OK").Inc()
		return nil
	}
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "maps: "); ok {
		status, detail, _ := strings.Cut(rest, " - ")
		if isStatus(status) {
			metrics.MapsRequests.WithLabelValues(api, status).Inc()
			return &StatusError{API: api, Status: status, Message: strings.TrimSpace(detail)}
		}
	}
	metrics.MapsRequests.WithLabelValues(api, "error").Inc()
	return fmt.Errorf("%s request: %w", api, err)
}

func isStatus(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}

func toPoint(l gmaps.LatLng) *model.GeoPoint {
	if l.Lat == 0 && l.Lng == 0 {
		return nil
	}
	return &model.GeoPoint{Lat: l.Lat, Lng: l.Lng}
}

func point(p model.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

func stop(c model.Client) string {
	if c.Location != nil {
		return point(*c.Location)
	}
	return c.Address
}
