// Package routing obtains driving routes between two coordinates from an
// external routing service.
package routing

import (
	"context"
	"errors"

	"github.com/openfleet/mileage-api/internal/geo"
)

// ErrRouteUnavailable is returned when the routing service yields no usable
// route (transport failure, bad response, or empty route list). The client
// never retries internally; retry or fallback policy belongs to the caller.
var ErrRouteUnavailable = errors.New("routing: no usable route")

// Request holds the resolved endpoints for a route calculation.
type Request struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
}

// Result holds a computed route.
type Result struct {
	// DistanceM is the driving distance in meters.
	DistanceM float64

	// Geometry is the path as received from the service: ordered [lon, lat]
	// pairs. Consumers needing lat/lon order convert it themselves.
	Geometry [][2]float64
}

// Router calculates a driving route between two geographic points.
type Router interface {
	Route(ctx context.Context, req Request) (*Result, error)
}
