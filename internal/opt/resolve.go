package opt

import (
	"context"
	"fmt"

	"visitroute/internal/model"
)

// GeocodeResult is what a geocoding capability returns for one client.
type GeocodeResult struct {
	Location model.GeoPoint
	PlaceID  string
}

// GeocodeFunc resolves a client's coordinate. Implementations prefer the
// stored place id over a free-text address lookup.
type GeocodeFunc func(ctx context.Context, c model.Client) (GeocodeResult, error)

// ResolvedFunc receives every freshly resolved location so the caller can
// merge it into the authoritative collection.
type ResolvedFunc func(ctx context.Context, id string, loc model.GeoPoint, placeID string) error

// LocationResolutionError reports the address that could not be geocoded.
type LocationResolutionError struct {
	ClientID string
	Address  string
	Err      error
}

func (e *LocationResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve address %q: %v", e.Address, e.Err)
}

func (e *LocationResolutionError) Unwrap() error { return e.Err }

// ResolveLocations makes sure every client carries a location. Clients are
// processed one at a time in input order; the first failure stops the run
// and later clients are not geocoded.
func ResolveLocations(ctx context.Context, clients []model.Client, geocode GeocodeFunc, onResolved ResolvedFunc) ([]model.Client, error) {
	out := make([]model.Client, 0, len(clients))
	for _, c := range clients {
		if c.Location != nil {
			out = append(out, c)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := geocode(ctx, c)
		if err != nil {
			return nil, &LocationResolutionError{ClientID: c.ID, Address: c.Address, Err: err}
		}
		loc := res.Location
		c.Location = &loc
		if c.PlaceID == "" {
			c.PlaceID = res.PlaceID
		}
		if onResolved != nil {
			if err := onResolved(ctx, c.ID, loc, c.PlaceID); err != nil {
				return nil, fmt.Errorf("merge location for %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
