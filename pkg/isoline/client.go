// Package isoline generates travel-time isochrones via an
// OpenRouteService-compatible API.
package isoline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reach-cli/internal/errs"
)

const defaultBaseURL = "https://api.openrouteservice.org"

// Client generates isochrones for a single location.
type Client interface {
	Isochrones(ctx context.Context, req Request) (*FeatureCollection, error)
}

// Request describes one isochrone generation call. Ranges are travel-time
// thresholds in seconds; the service returns one feature per range value.
type Request struct {
	Longitude float64
	Latitude  float64
	Profile   string
	Ranges    []int
	Smoothing float64
}

// FeatureCollection is the service's GeoJSON response.
type FeatureCollection struct {
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Features []Feature      `json:"features"`
}

// Feature is one isochrone ring.
type Feature struct {
	Type       string         `json:"type"`
	Properties Properties     `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Properties carries the service's per-ring attributes.
type Properties struct {
	GroupIndex int       `json:"group_index"`
	Value      float64   `json:"value"`
	Center     []float64 `json:"center"`
}

// Geometry is the ring polygon.
type Geometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the service base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.httpClient.Timeout = d
	}
}

type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an isochrone Client. The API key is required.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.Wrap(errs.ErrConfig, "isoline: api key is required")
	}
	c := &client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// isochroneRequest is the service's request body.
type isochroneRequest struct {
	Locations [][]float64 `json:"locations"`
	Range     []int       `json:"range"`
	RangeType string      `json:"range_type"`
	Smoothing float64     `json:"smoothing,omitempty"`
}

// Isochrones calls the isochrones endpoint for req's location.
func (c *client) Isochrones(ctx context.Context, req Request) (*FeatureCollection, error) {
	if req.Profile == "" {
		return nil, eris.Wrap(errs.ErrValidation, "isoline: profile is required")
	}
	if len(req.Ranges) == 0 {
		return nil, eris.Wrap(errs.ErrValidation, "isoline: ranges are required")
	}

	body, err := json.Marshal(isochroneRequest{
		// Service expects [longitude, latitude]
		Locations: [][]float64{{req.Longitude, req.Latitude}},
		Range:     req.Ranges,
		RangeType: "time",
		Smoothing: req.Smoothing,
	})
	if err != nil {
		return nil, eris.Wrap(err, "isoline: marshal request")
	}

	reqURL := c.baseURL + "/v2/isochrones/" + req.Profile + "/geojson"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "isoline: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(errs.ErrConnectivity, "isoline: request: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "isoline: read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(errs.ErrConnectivity,
			"isoline: service returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var fc FeatureCollection
	if err := json.Unmarshal(respBody, &fc); err != nil {
		return nil, eris.Wrap(err, "isoline: parse response")
	}
	if fc.Type != "FeatureCollection" {
		return nil, eris.Wrapf(errs.ErrGeoJSON, "isoline: unexpected response type %q", fc.Type)
	}
	return &fc, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
