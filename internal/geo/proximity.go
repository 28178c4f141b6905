// Package geo computes great-circle distances between speed bumps and the vehicle.
package geo

import (
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// NearestDistance scans points linearly. ok is false for an empty slice.
func NearestDistance(p Point, points []Point) (dist float64, ok bool) {
	if len(points) == 0 {
		return 0, false
	}
	dist = math.Inf(1)
	for _, c := range points {
		if d := DistanceMeters(p, c); d < dist {
			dist = d
		}
	}
	return dist, true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
