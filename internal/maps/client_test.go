package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gmaps "googlemaps.github.io/maps"

	"visitroute/internal/model"
	"visitroute/internal/planner"
)

var _ planner.MapService = (*Client)(nil)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *[]url.Values) {
	var seen []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New("test-key", "AU", "en", 100, gmaps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, &seen
}

func TestGeocodePrefersPlaceID(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/geocode/json" {
			t.Errorf("path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"place_id":"pid-1","geometry":{"location":{"lat":-37.81,"lng":144.96}}}]}`))
	})
	res, err := c.Geocode(context.Background(), model.Client{Address: "1 A St", PlaceID: "stored"})
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if res.Location.Lat != -37.81 || res.PlaceID != "pid-1" {
		t.Fatalf("result: %+v", res)
	}
	q := (*seen)[0]
	if q.Get("place_id") != "stored" || q.Get("address") != "" || q.Get("key") != "test-key" {
		t.Fatalf("query: %v", q)
	}

	if _, err := c.Geocode(context.Background(), model.Client{Address: "1 A St"}); err != nil {
		t.Fatalf("geocode by address: %v", err)
	}
	q = (*seen)[1]
	if q.Get("address") != "1 A St" || q.Get("region") != "au" {
		t.Fatalf("address query: %v", q)
	}
}

func TestGeocodeZeroResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})
	_, err := c.Geocode(context.Background(), model.Client{Address: "nowhere"})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != "ZERO_RESULTS" {
		t.Fatalf("want ZERO_RESULTS, got %v", err)
	}
}

func TestDirectionsKeepsOrderAndAvoidsTolls(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","routes":[{"legs":[
			{"distance":{"value":1200},"duration":{"value":300},"start_location":{"lat":-37.8,"lng":144.9}},
			{"distance":{"value":3400},"duration":{"value":600}}]}]}`))
	})
	legs, err := c.Directions(context.Background(), planner.DirectionsRequest{
		Origin: model.GeoPoint{Lat: -37.8, Lng: 144.9},
		Stops: []model.Client{
			{Address: "2 B St"},
			{Location: &model.GeoPoint{Lat: -37.85, Lng: 145}},
		},
	})
	if err != nil {
		t.Fatalf("directions: %v", err)
	}
	if len(legs) != 2 || legs[0].DistanceMeters != 1200 || legs[1].DurationSeconds != 600 || legs[0].StartLocation == nil || legs[1].StartLocation != nil {
		t.Fatalf("legs: %+v", legs)
	}
	q := (*seen)[0]
	if q.Get("origin") != "-37.800000,144.900000" || q.Get("destination") != "-37.850000,145.000000" || q.Get("waypoints") != "2 B St" {
		t.Fatalf("query: %v", q)
	}
	if q.Get("mode") != "driving" || q.Get("avoid") != "tolls" || q.Get("language") != "en" {
		t.Fatalf("travel options: %v", q)
	}
}

func TestDirectionsFailureStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"NOT_FOUND","routes":[]}`))
	})
	_, err := c.Directions(context.Background(), planner.DirectionsRequest{Stops: []model.Client{{Address: "x"}}})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != "NOT_FOUND" {
		t.Fatalf("want NOT_FOUND, got %v", err)
	}
}

func TestAutocompleteZeroResultsIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","predictions":[]}`))
	})
	preds, err := c.Autocomplete(context.Background(), "zzzz")
	if err != nil || preds == nil || len(preds) != 0 {
		t.Fatalf("autocomplete: %+v %v", preds, err)
	}
}

func TestRequestDeniedIsStatusError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	})
	_, err := c.PlaceDetails(context.Background(), "p1")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != "REQUEST_DENIED" || se.Message != "bad key" {
		t.Fatalf("want REQUEST_DENIED, got %v", err)
	}
}

func TestAutocompleteAndDetails(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/maps/api/place/autocomplete/json":
			_, _ = w.Write([]byte(`{"status":"OK","predictions":[{"place_id":"p1","description":"1 Collins St, Melbourne"}]}`))
		case "/maps/api/place/details/json":
			if r.URL.Query().Get("place_id") == "nogeo" {
				_, _ = w.Write([]byte(`{"status":"OK","result":{"place_id":"nogeo"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"OK","result":{"place_id":"p1","formatted_address":"1 Collins St","geometry":{"location":{"lat":-37.81,"lng":144.97}}}}`))
		}
	})
	preds, err := c.Autocomplete(context.Background(), "1 Collins")
	if err != nil || len(preds) != 1 || preds[0].PlaceID != "p1" {
		t.Fatalf("autocomplete: %+v %v", preds, err)
	}
	if (*seen)[0].Get("components") != "country:au" {
		t.Fatalf("autocomplete not restricted: %v", (*seen)[0])
	}
	place, err := c.PlaceDetails(context.Background(), "p1")
	if err != nil || place.Location == nil || place.FormattedAddress != "1 Collins St" {
		t.Fatalf("details: %+v %v", place, err)
	}
	if _, err := c.PlaceDetails(context.Background(), "nogeo"); err == nil {
		t.Fatalf("place without geometry accepted")
	}
}

func TestNotReadyWithoutKey(t *testing.T) {
	c, err := New("", "AU", "en", 0)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("want ErrNoAPIKey, got %v", err)
	}
	if c.Ready() {
		t.Fatalf("client without key reported ready")
	}
	if _, err := c.Geocode(context.Background(), model.Client{Address: "x"}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("want ErrNoAPIKey, got %v", err)
	}
}
