// Package geo holds the coordinate type and distance/unit helpers shared by
// the geocoding, routing, and trip layers.
package geo

import (
	"fmt"
	"math"
)

const (
	// milesPerMeter is the conversion factor used for reporting distances.
	milesPerMeter = 0.000621371

	// earthRadiusMiles is the Earth radius used for great-circle estimates.
	earthRadiusMiles = 3958.8

	deg2rad = math.Pi / 180.0
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the coordinate is inside the valid WGS-84 range.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("geo: latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("geo: longitude %v out of range [-180, 180]", c.Lon)
	}
	return nil
}

// MetersToMiles converts a distance in meters to statute miles.
func MetersToMiles(meters float64) float64 {
	return meters * milesPerMeter
}

// HaversineMiles computes the great-circle distance in miles between two points.
func HaversineMiles(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * deg2rad
	dLon := (b.Lon - a.Lon) * deg2rad
	lat1 := a.Lat * deg2rad
	lat2 := b.Lat * deg2rad

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
