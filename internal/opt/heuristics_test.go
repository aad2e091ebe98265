package opt

import (
	"testing"

	"visitroute/internal/geo"
	"visitroute/internal/model"
)

func located(id string, lat, lng float64) model.Client {
	return model.Client{ID: id, Name: id, Address: id + " street", Date: "2026-10-15", Location: &model.GeoPoint{Lat: lat, Lng: lng}}
}

func ids(cs []model.Client) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildRouteEmpty(t *testing.T) {
	got := BuildRoute(nil, model.GeoPoint{})
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestBuildRouteMelbourneScenario(t *testing.T) {
	c1 := located("client-1", -37.81, 144.96)
	c2 := located("client-2", -37.80, 144.90)
	c3 := located("client-3", -37.82, 144.99)
	origin := model.GeoPoint{Lat: -37.815, Lng: 144.97}
	want := []string{"client-1", "client-3", "client-2"}

	inputs := [][]model.Client{
		{c1, c2, c3}, {c1, c3, c2}, {c2, c1, c3},
		{c2, c3, c1}, {c3, c1, c2}, {c3, c2, c1},
	}
	for _, in := range inputs {
		got := ids(BuildRoute(in, origin))
		if !sameIDs(got, want) {
			t.Fatalf("input %v: got %v, want %v", ids(in), got, want)
		}
	}
}

func TestBuildRouteTieBreaksByInputOrder(t *testing.T) {
	a := located("a", 0, 1)
	b := located("b", 1, 0)
	got := ids(BuildRoute([]model.Client{a, b}, model.GeoPoint{}))
	if got[0] != "a" {
		t.Fatalf("equidistant tie should pick first input, got %v", got)
	}
	got = ids(BuildRoute([]model.Client{b, a}, model.GeoPoint{}))
	if got[0] != "b" {
		t.Fatalf("equidistant tie should pick first input, got %v", got)
	}

	x := located("x", 5, 5)
	y := located("y", 5, 5)
	got = ids(BuildRoute([]model.Client{x, y}, model.GeoPoint{}))
	if !sameIDs(got, []string{"x", "y"}) {
		t.Fatalf("co-located stops should keep input order, got %v", got)
	}
}

func TestBuildRouteIsGreedyPermutation(t *testing.T) {
	in := []model.Client{
		located("p1", -37.70, 145.10),
		located("p2", -37.95, 144.80),
		located("p3", -37.81, 144.95),
		located("p4", -37.60, 144.99),
		located("p5", -37.88, 145.02),
		located("p6", -37.77, 144.91),
	}
	origin := model.GeoPoint{Lat: -37.84, Lng: 144.98}
	got := BuildRoute(in, origin)
	if len(got) != len(in) {
		t.Fatalf("got %d stops, want %d", len(got), len(in))
	}
	seen := map[string]int{}
	for _, c := range got {
		seen[c.ID]++
	}
	for _, c := range in {
		if seen[c.ID] != 1 {
			t.Fatalf("client %s visited %d times", c.ID, seen[c.ID])
		}
	}

	cur := origin
	for i, c := range got {
		d := geo.Distance(cur, *c.Location)
		for _, rest := range got[i+1:] {
			if geo.Distance(cur, *rest.Location) < d {
				t.Fatalf("step %d picked %s but %s is closer", i, c.ID, rest.ID)
			}
		}
		cur = *c.Location
	}

	again := BuildRoute(in, origin)
	if !sameIDs(ids(got), ids(again)) {
		t.Fatalf("route not deterministic: %v vs %v", ids(got), ids(again))
	}
	if in[0].ID != "p1" || in[5].ID != "p6" {
		t.Fatal("input slice was reordered")
	}
}

func TestBuildRouteUnlocatedGoLast(t *testing.T) {
	u1 := model.Client{ID: "u1", Address: "nowhere"}
	u2 := model.Client{ID: "u2", Address: "elsewhere"}
	far := located("far", 10, 10)
	near := located("near", 0.1, 0.1)
	got := ids(BuildRoute([]model.Client{u1, far, u2, near}, model.GeoPoint{}))
	want := []string{"near", "far", "u1", "u2"}
	if !sameIDs(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
