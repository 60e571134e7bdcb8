package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("address"))
		assert.NotEmpty(t, r.URL.Query().Get("key"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestGoogleProvider_Match(t *testing.T) {
	srv := googleServer(t, http.StatusOK, `{
		"status": "OK",
		"results": [{
			"geometry": {
				"location": {"lat": 43.4723, "lng": -80.5449},
				"location_type": "ROOFTOP"
			},
			"formatted_address": "100 University Ave W, Waterloo, ON"
		}]
	}`)
	defer srv.Close()

	p := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	result, err := p.Geocode(context.Background(), "100 university ave, waterloo, on, canada")

	require.NoError(t, err)
	assert.InDelta(t, 43.4723, result.Lat, 0.0001)
	assert.InDelta(t, -80.5449, result.Lng, 0.0001)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
	assert.Equal(t, "google", result.Provider)
}

func TestGoogleProvider_ZeroResults(t *testing.T) {
	srv := googleServer(t, http.StatusOK, `{"status": "ZERO_RESULTS", "results": []}`)
	defer srv.Close()

	p := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "123 fake st, waterloo, on, canada")

	var rf *ResolutionFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, FailureNotFound, rf.Kind)
	assert.False(t, rf.Retryable())
}

func TestGoogleProvider_QuotaExceeded(t *testing.T) {
	srv := googleServer(t, http.StatusOK, `{"status": "OVER_QUERY_LIMIT", "results": []}`)
	defer srv.Close()

	p := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "15 erb st w, waterloo, on, canada")

	var rf *ResolutionFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, FailureQuotaExceeded, rf.Kind)
}

func TestGoogleProvider_RequestDenied(t *testing.T) {
	srv := googleServer(t, http.StatusOK, `{"status": "REQUEST_DENIED", "results": []}`)
	defer srv.Close()

	p := NewGoogleProvider("bad-key", WithGoogleBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "15 erb st w, waterloo, on, canada")

	var rf *ResolutionFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, FailureInvalidRequest, rf.Kind)
}

func TestGoogleProvider_ServerErrorIsTransient(t *testing.T) {
	srv := googleServer(t, http.StatusBadGateway, `oops`)
	defer srv.Close()

	p := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "15 erb st w, waterloo, on, canada")

	var rf *ResolutionFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, FailureTransient, rf.Kind)
	assert.True(t, rf.Retryable())
}

func TestGoogleProvider_EmptyAddressNoNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("empty address must not reach the network")
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key", WithGoogleBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "   ")

	var rf *ResolutionFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, FailureInvalidRequest, rf.Kind)
}

func TestGoogleProvider_UnavailableWithoutKey(t *testing.T) {
	p := NewGoogleProvider("")
	assert.False(t, p.Available())

	_, err := p.Geocode(context.Background(), "15 erb st w")
	var rf *ResolutionFailure
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, FailureInvalidRequest, rf.Kind)
}

func TestLocationTypeConfidence(t *testing.T) {
	assert.InDelta(t, 1.0, locationTypeConfidence("ROOFTOP"), 0.001)
	assert.InDelta(t, 0.8, locationTypeConfidence("RANGE_INTERPOLATED"), 0.001)
	assert.InDelta(t, 0.6, locationTypeConfidence("GEOMETRIC_CENTER"), 0.001)
	assert.InDelta(t, 0.4, locationTypeConfidence("APPROXIMATE"), 0.001)
	assert.InDelta(t, 0.4, locationTypeConfidence("something else"), 0.001)
}
