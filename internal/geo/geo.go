// Package geo holds spherical distance helpers for route ordering.
package geo

import (
	"math"

	"visitroute/internal/model"
)

// EarthRadiusM is the sphere radius the Google Maps geometry library uses,
// so local ordering agrees with the map's own distance readings.
const EarthRadiusM = 6378137.0

// Distance returns the great-circle distance in metres (haversine).
func Distance(a, b model.GeoPoint) float64 {
	return haversineMeters(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PathDistance sums straight-line distances from origin through points in order.
func PathDistance(origin model.GeoPoint, points []model.GeoPoint) float64 {
	total := 0.0
	cur := origin
	for _, p := range points {
		total += Distance(cur, p)
		cur = p
	}
	return total
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}
