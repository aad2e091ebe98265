package opt

import (
	"math"

	"visitroute/internal/geo"
	"visitroute/internal/model"
)

// BuildRoute orders clients by greedy nearest neighbour starting at origin.
// Ties go to the client that appears first in the input. Clients without a
// location are never picked ahead of located ones; they end up last, in
// their original relative order. The input slice is left untouched.
func BuildRoute(clients []model.Client, origin model.GeoPoint) []model.Client {
	if len(clients) == 0 {
		return []model.Client{}
	}
	remaining := append([]model.Client(nil), clients...)
	ordered := make([]model.Client, 0, len(clients))
	current := origin

	for len(remaining) > 0 {
		nearest := 0
		nearestDist := math.Inf(1)
		for i, c := range remaining {
			if c.Location == nil {
				continue
			}
			if d := geo.Distance(current, *c.Location); d < nearestDist {
				nearestDist = d
				nearest = i
			}
		}
		next := remaining[nearest]
		remaining = append(remaining[:nearest], remaining[nearest+1:]...)
		ordered = append(ordered, next)
		if next.Location != nil {
			current = *next.Location
		}
	}
	return ordered
}

// StraightLineMeters is the as-the-crow-flies length of an ordered tour.
func StraightLineMeters(origin model.GeoPoint, ordered []model.Client) float64 {
	pts := make([]model.GeoPoint, 0, len(ordered))
	for _, c := range ordered {
		if c.Location != nil {
			pts = append(pts, *c.Location)
		}
	}
	return geo.PathDistance(origin, pts)
}
