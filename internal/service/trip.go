// Package service holds the application services: trip computation, expense
// management, and authentication.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/openfleet/mileage-api/internal/geo"
	"github.com/openfleet/mileage-api/internal/geocode"
	"github.com/openfleet/mileage-api/internal/routing"
)

// Failure reasons surfaced by ComputeTrip. Handlers map these to
// human-readable responses that say which step failed.
var (
	ErrMissingInput        = errors.New("trip: both origin and destination are required")
	ErrOriginNotFound      = errors.New("trip: origin could not be resolved")
	ErrDestinationNotFound = errors.New("trip: destination could not be resolved")
)

// TripState names a phase of the trip computation state machine.
type TripState string

const (
	StateIdle                 TripState = "idle"
	StateResolvingOrigin      TripState = "resolving_origin"
	StateResolvingDestination TripState = "resolving_destination"
	StateRouting              TripState = "routing"
	StateDone                 TripState = "done"
	StateFailed               TripState = "failed"
)

// TripSource tells whether a distance came from the routing service or from a
// local great-circle estimate.
type TripSource string

const (
	SourceRouted    TripSource = "routed"
	SourceEstimated TripSource = "estimated"
)

// TripResult is the outcome of a successful trip computation.
type TripResult struct {
	Origin        geo.Coordinate `json:"origin"`
	Destination   geo.Coordinate `json:"destination"`
	DistanceMiles float64        `json:"distance_miles"`
	Source        TripSource     `json:"source"`
	// Path is the route geometry in lat/lon order, empty for estimates.
	Path []geo.Coordinate `json:"path"`
}

// TripService sequences endpoint resolution and routing:
// idle → resolving origin → resolving destination → routing → done/failed.
//
// When the router reports no usable route, the service degrades to a
// straight-line haversine estimate instead of failing, and marks the result
// accordingly. Resolution failures are terminal for the invocation; the next
// call starts fresh.
type TripService struct {
	resolver geocode.SingleResolver
	router   routing.Router
}

// NewTripService creates a TripService.
//
//   - resolver turns endpoint text into a single coordinate.
//   - router should be a *routing.MemoRouter wrapping a *routing.OSRMRouter
//     for production use, or any Router implementation for testing.
func NewTripService(resolver geocode.SingleResolver, router routing.Router) *TripService {
	return &TripService{resolver: resolver, router: router}
}

// ComputeTrip resolves both endpoint texts and fetches the driving route
// between them, reporting the distance in miles.
//
// Errors:
//   - ErrMissingInput when either text is blank (checked before any network call).
//   - ErrOriginNotFound / ErrDestinationNotFound (wrapped) when resolution fails.
func (s *TripService) ComputeTrip(ctx context.Context, originText, destinationText string) (*TripResult, error) {
	if strings.TrimSpace(originText) == "" || strings.TrimSpace(destinationText) == "" {
		return nil, ErrMissingInput
	}

	origin, err := s.resolver.ResolveSingle(ctx, originText)
	if err != nil {
		return nil, fmt.Errorf("trip: %s: %v: %w", StateResolvingOrigin, err, ErrOriginNotFound)
	}

	destination, err := s.resolver.ResolveSingle(ctx, destinationText)
	if err != nil {
		return nil, fmt.Errorf("trip: %s: %v: %w", StateResolvingDestination, err, ErrDestinationNotFound)
	}

	res, err := s.router.Route(ctx, routing.Request{Origin: origin, Destination: destination})
	if err != nil {
		// Routing is degradable: fall back to a great-circle estimate rather
		// than failing the whole invocation.
		log.Printf("trip: router unavailable (using straight-line estimate): %v", err)
		return &TripResult{
			Origin:        origin,
			Destination:   destination,
			DistanceMiles: geo.HaversineMiles(origin, destination),
			Source:        SourceEstimated,
			Path:          nil,
		}, nil
	}

	return &TripResult{
		Origin:        origin,
		Destination:   destination,
		DistanceMiles: geo.MetersToMiles(res.DistanceM),
		Source:        SourceRouted,
		Path:          pathToLatLon(res.Geometry),
	}, nil
}

// pathToLatLon converts service geometry ([lon, lat] pairs) into coordinates.
func pathToLatLon(geometry [][2]float64) []geo.Coordinate {
	if len(geometry) == 0 {
		return nil
	}
	path := make([]geo.Coordinate, len(geometry))
	for i, p := range geometry {
		path[i] = geo.Coordinate{Lat: p[1], Lon: p[0]}
	}
	return path
}
