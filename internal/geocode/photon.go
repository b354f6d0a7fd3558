package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openfleet/mileage-api/internal/geo"
)

const (
	// defaultPhotonBaseURL is the public Photon instance.
	defaultPhotonBaseURL = "https://photon.komoot.io"

	// photonTimeout bounds each autocomplete lookup.
	photonTimeout = 5 * time.Second

	// photonLimit is the maximum number of suggestions requested upstream.
	photonLimit = 5

	// httpMaxIdleConns is the keep-alive pool size shared across hosts.
	httpMaxIdleConns = 10

	// httpIdleConnTimeout closes idle connections before upstream servers
	// enforce their shorter keep-alive windows.
	httpIdleConnTimeout = 30 * time.Second

	// userAgent identifies this service to the public OSM-ecosystem endpoints,
	// which reject anonymous clients.
	userAgent = "mileage-api"
)

// PhotonGeocoder implements Geocoder against a Photon forward-geocoding
// endpoint (GET /api/?q=...&limit=N, GeoJSON feature collection response).
type PhotonGeocoder struct {
	baseURL    string
	country    string // uppercase ISO code; empty disables filtering
	httpClient *http.Client
}

// NewPhotonGeocoder creates a Geocoder backed by the Photon API at baseURL
// (the public instance when empty). When country is non-empty, candidates
// whose countrycode does not match are dropped.
func NewPhotonGeocoder(baseURL, country string) *PhotonGeocoder {
	if baseURL == "" {
		baseURL = defaultPhotonBaseURL
	}
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &PhotonGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		country: strings.ToUpper(country),
		httpClient: &http.Client{
			Timeout:   photonTimeout,
			Transport: transport,
		},
	}
}

// Candidates queries Photon and returns ranked suggestions.
//
// Transport failures, non-200 statuses, and malformed bodies are logged and
// resolved to an empty candidate list: autocomplete failures must never
// surface as faults, only as zero suggestions.
func (p *PhotonGeocoder) Candidates(ctx context.Context, query string) ([]Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	cands, err := p.lookup(ctx, query)
	if err != nil {
		log.Printf("geocode: photon lookup failed (returning no suggestions): %v", err)
		return nil, nil
	}
	return cands, nil
}

func (p *PhotonGeocoder) lookup(ctx context.Context, query string) ([]Candidate, error) {
	reqCtx, cancel := context.WithTimeout(ctx, photonTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/api/?limit=%d&q=%s", p.baseURL, photonLimit, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: photon: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: photon: http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("geocode: photon: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: photon: status %d: %s", resp.StatusCode, string(body))
	}

	var fc photonFeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("geocode: photon: unmarshal response: %w", err)
	}

	cands := make([]Candidate, 0, len(fc.Features))
	for _, f := range fc.Features {
		props := f.Properties
		if p.country != "" && !strings.EqualFold(props.CountryCode, p.country) {
			continue
		}
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		// GeoJSON point order is [lon, lat].
		coord := geo.Coordinate{
			Lat: f.Geometry.Coordinates[1],
			Lon: f.Geometry.Coordinates[0],
		}
		if coord.Validate() != nil {
			continue
		}
		cands = append(cands, Candidate{
			Label:       composeLabel(props.Name, props.Street, props.City, props.State),
			Coordinate:  coord,
			CountryCode: strings.ToUpper(props.CountryCode),
		})
	}

	return cands, nil
}

// --- JSON types for the Photon GeoJSON response ---

type photonFeatureCollection struct {
	Features []photonFeature `json:"features"`
}

type photonFeature struct {
	Geometry   photonGeometry   `json:"geometry"`
	Properties photonProperties `json:"properties"`
}

type photonGeometry struct {
	Coordinates []float64 `json:"coordinates"`
}

type photonProperties struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	CountryCode string `json:"countrycode"`
}
