package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultOSRMBaseURL is the public OSRM demo server.
	defaultOSRMBaseURL = "http://router.project-osrm.org"

	// osrmTimeout is the maximum duration for a routing call.
	osrmTimeout = 8 * time.Second

	// osrmMaxIdleConns is the keep-alive pool size for the transport.
	osrmMaxIdleConns = 10

	// osrmIdleConnTimeout closes idle connections before the server does.
	osrmIdleConnTimeout = 30 * time.Second

	// osrmUserAgent identifies this service to the public OSRM instance.
	osrmUserAgent = "mileage-api"
)

// OSRMRouter implements Router against an OSRM route/v1/driving endpoint.
type OSRMRouter struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMRouter creates a Router backed by the OSRM instance at baseURL
// (the public demo server when empty).
func NewOSRMRouter(baseURL string) *OSRMRouter {
	if baseURL == "" {
		baseURL = defaultOSRMBaseURL
	}
	transport := &http.Transport{
		MaxIdleConns:        osrmMaxIdleConns,
		MaxIdleConnsPerHost: osrmMaxIdleConns,
		IdleConnTimeout:     osrmIdleConnTimeout,
	}
	return &OSRMRouter{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   osrmTimeout,
			Transport: transport,
		},
	}
}

// Route requests the full route geometry in GeoJSON coordinate order.
// Any failure, including an empty routes list, resolves to an error wrapping
// ErrRouteUnavailable.
func (o *OSRMRouter) Route(ctx context.Context, req Request) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, osrmTimeout)
	defer cancel()

	// OSRM path segments are lon,lat ordered.
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.baseURL,
		req.Origin.Lon, req.Origin.Lat,
		req.Destination.Lon, req.Destination.Lat,
	)

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("routing: osrm: create request: %w", ErrRouteUnavailable)
	}
	httpReq.Header.Set("User-Agent", osrmUserAgent)

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("routing: osrm: http %v: %w", err, ErrRouteUnavailable)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("routing: osrm: read response: %w", ErrRouteUnavailable)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing: osrm: status %d: %w", httpResp.StatusCode, ErrRouteUnavailable)
	}

	var apiResp osrmResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("routing: osrm: unmarshal response: %w", ErrRouteUnavailable)
	}
	if len(apiResp.Routes) == 0 {
		return nil, fmt.Errorf("routing: osrm: no routes returned: %w", ErrRouteUnavailable)
	}

	route := apiResp.Routes[0]
	return &Result{
		DistanceM: route.Distance,
		Geometry:  route.Geometry.Coordinates,
	}, nil
}

// --- JSON types for the OSRM response ---

type osrmResponse struct {
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64      `json:"distance"`
	Geometry osrmGeometry `json:"geometry"`
}

type osrmGeometry struct {
	Coordinates [][2]float64 `json:"coordinates"`
}
