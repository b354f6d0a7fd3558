package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openfleet/mileage-api/internal/geo"
)

const (
	// defaultNominatimBaseURL is the public Nominatim instance.
	defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"

	// nominatimTimeout bounds each single-resolution lookup.
	nominatimTimeout = 5 * time.Second
)

// NominatimResolver implements SingleResolver against a Nominatim search
// endpoint (GET /search?q=...&format=json&limit=1, JSON array response with
// lat/lon as strings).
type NominatimResolver struct {
	baseURL    string
	httpClient *http.Client
}

// NewNominatimResolver creates a SingleResolver backed by the Nominatim API at
// baseURL (the public instance when empty).
func NewNominatimResolver(baseURL string) *NominatimResolver {
	if baseURL == "" {
		baseURL = defaultNominatimBaseURL
	}
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &NominatimResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   nominatimTimeout,
			Transport: transport,
		},
	}
}

// ResolveSingle returns the first (best-ranked) match for the address.
// Transport and parse failures, as well as empty result sets, resolve to an
// error wrapping ErrNotFound so callers need only one check.
func (n *NominatimResolver) ResolveSingle(ctx context.Context, address string) (geo.Coordinate, error) {
	if strings.TrimSpace(address) == "" {
		return geo.Coordinate{}, fmt.Errorf("geocode: empty address: %w", ErrNotFound)
	}

	reqCtx, cancel := context.WithTimeout(ctx, nominatimTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", n.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode: nominatim: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode: nominatim: http %v: %w", err, ErrNotFound)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode: nominatim: read response: %w", ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("geocode: nominatim: status %d: %w", resp.StatusCode, ErrNotFound)
	}

	// Nominatim reports lat/lon as JSON strings.
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode: nominatim: unmarshal response: %w", ErrNotFound)
	}
	if len(results) == 0 {
		return geo.Coordinate{}, fmt.Errorf("geocode: %q: %w", address, ErrNotFound)
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode: nominatim: bad coordinates %q,%q: %w",
			results[0].Lat, results[0].Lon, ErrNotFound)
	}

	coord := geo.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode: nominatim: %v: %w", err, ErrNotFound)
	}

	return coord, nil
}
