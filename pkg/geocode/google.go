package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kwparking/parksafe/internal/resilience"
)

const defaultGoogleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleProvider resolves addresses via the Google Geocoding API.
type GoogleProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// GoogleOption configures the GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.httpClient = hc
	}
}

// WithGoogleBaseURL overrides the API endpoint, used by tests.
func WithGoogleBaseURL(u string) GoogleOption {
	return func(p *GoogleProvider) {
		p.baseURL = u
	}
}

// NewGoogleProvider creates a GoogleProvider. An empty key yields a provider
// that reports itself unavailable rather than erroring at construction, so
// the engine can start in a "geocoding unavailable" state and keep serving
// cached markers.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultGoogleGeocodeURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.apiKey != "" }

// Geocode implements Provider. Every call that reaches the network consumes
// provider quota, including retried attempts.
func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if !p.Available() {
		return nil, NewFailure(FailureInvalidRequest, address, eris.New("google api key not configured"))
	}
	if strings.TrimSpace(address) == "" {
		return nil, NewFailure(FailureInvalidRequest, address, eris.New("empty address"))
	}

	params := url.Values{
		"address": {address},
		"key":     {p.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, NewFailure(FailureInvalidRequest, address, eris.Wrap(err, "google: build request"))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, NewFailure(FailureTransient, address, eris.Wrap(err, "google: request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		kind := FailureInvalidRequest
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			kind = FailureTransient
		}
		return nil, NewFailure(kind, address, eris.Errorf("google: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewFailure(FailureTransient, address, eris.Wrap(err, "google: read body"))
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, NewFailure(FailureTransient, address, eris.Wrap(err, "google: parse response"))
	}

	switch googleResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, NewFailure(FailureNotFound, address, nil)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "RESOURCE_EXHAUSTED":
		return nil, NewFailure(FailureQuotaExceeded, address, nil)
	case "INVALID_REQUEST", "REQUEST_DENIED":
		return nil, NewFailure(FailureInvalidRequest, address, eris.Errorf("google: status %s", googleResp.Status))
	default:
		return nil, NewFailure(FailureTransient, address, eris.Errorf("google: status %s", googleResp.Status))
	}

	if len(googleResp.Results) == 0 {
		return nil, NewFailure(FailureNotFound, address, nil)
	}

	first := googleResp.Results[0]
	return &Result{
		Lat:        first.Geometry.Location.Lat,
		Lng:        first.Geometry.Location.Lng,
		Confidence: locationTypeConfidence(first.Geometry.LocationType),
		Provider:   p.Name(),
	}, nil
}

// locationTypeConfidence maps Google's location_type to a confidence score.
func locationTypeConfidence(locType string) float64 {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return 1.0
	case "RANGE_INTERPOLATED":
		return 0.8
	case "GEOMETRIC_CENTER":
		return 0.6
	case "APPROXIMATE":
		return 0.4
	default:
		return 0.4
	}
}
