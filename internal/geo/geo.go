// Package geo provides the coordinate verification capability the plot core
// consumes. The core never does projection or geodesy itself; it depends on
// the Verifier interface and treats out-of-radius results as a domain error.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Verifier computes and checks GPS coordinates against a target waypoint.
type Verifier interface {
	// ToDecimal converts a degree/minute pair to decimal degrees. Southern
	// and western hemispheres are expressed by a negative degrees value.
	ToDecimal(degrees float64, minutes float64) float64
	// Distance returns the separation of two points in meters.
	Distance(p1, p2 Point) float64
	// WithinRadius reports whether point lies within radius meters of target.
	WithinRadius(point, target Point, radius float64) bool
}

// Haversine is the default Verifier, using the haversine great-circle
// formula. Accuracy is well under a meter at survey scales.
type Haversine struct{}

func NewVerifier() Haversine { return Haversine{} }

func (Haversine) ToDecimal(degrees float64, minutes float64) float64 {
	sign := 1.0
	if degrees < 0 || math.Signbit(degrees) {
		sign = -1.0
	}
	return sign * (math.Abs(degrees) + minutes/60.0)
}

func (Haversine) Distance(p1, p2 Point) float64 {
	lat1 := radians(p1.Latitude)
	lat2 := radians(p2.Latitude)
	dLat := radians(p2.Latitude - p1.Latitude)
	dLon := radians(p2.Longitude - p1.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func (h Haversine) WithinRadius(point, target Point, radius float64) bool {
	return h.Distance(point, target) <= radius
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
