// Package geocode resolves free-text addresses to geographic coordinates.
//
// Two resolution modes are provided: Candidates (ranked autocomplete
// suggestions, Photon-backed) and ResolveSingle (best-match coordinate for a
// route endpoint, Nominatim-backed). Both degrade to "no results" on transport
// or parse failures rather than surfacing faults to callers.
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/openfleet/mileage-api/internal/geo"
)

// ErrNotFound is returned by single-coordinate resolution when the service
// yields no usable match. Callers should use errors.Is to distinguish it from
// transport problems wrapped around it.
var ErrNotFound = errors.New("geocode: no match found")

// Candidate is one resolved place suggestion. Immutable once created; the
// upstream ranking order is preserved by every layer that handles a slice of
// these.
type Candidate struct {
	Label       string         `json:"label"`
	Coordinate  geo.Coordinate `json:"coordinate"`
	CountryCode string         `json:"country_code"`
}

// Geocoder resolves free text to candidate places.
type Geocoder interface {
	// Candidates returns ranked suggestions for the query, filtered to the
	// configured country when one is set. Empty result sets are not an error.
	Candidates(ctx context.Context, query string) ([]Candidate, error)
}

// SingleResolver resolves an address to its single best coordinate.
type SingleResolver interface {
	// ResolveSingle returns the best-match coordinate for the address, or an
	// error wrapping ErrNotFound when the service has no usable match.
	ResolveSingle(ctx context.Context, address string) (geo.Coordinate, error)
}

// Normalize produces the cache/debounce identity key for a query: surrounding
// whitespace trimmed and case folded. Two queries differing only in case or
// leading/trailing space share a key.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// composeLabel builds a display label from the available address parts.
// The field order (name, street, city, state) is fixed; empty parts are
// omitted. The separator is ", ".
func composeLabel(name, street, city, state string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{name, street, city, state} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
