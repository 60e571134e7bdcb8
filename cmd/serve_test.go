package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kwparking/parksafe/internal/dataset"
	"github.com/kwparking/parksafe/internal/engine"
	"github.com/kwparking/parksafe/internal/geocache"
	"github.com/kwparking/parksafe/internal/model"
	"github.com/kwparking/parksafe/pkg/geocode"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type tableProvider struct {
	calls  atomic.Int64
	coords map[string]model.Coordinate
}

func (p *tableProvider) Available() bool { return true }

func (p *tableProvider) Geocode(_ context.Context, addr string) (*geocode.Result, error) {
	p.calls.Add(1)
	c, ok := p.coords[addr]
	if !ok {
		return nil, geocode.NewFailure(geocode.FailureNotFound, addr, nil)
	}
	return &geocode.Result{Lat: c.Lat, Lng: c.Lng, Confidence: 1.0, Provider: "fake"}, nil
}

// newTestRouter stands up the API over one CSV file and an in-memory cache.
func newTestRouter(t *testing.T, provider *tableProvider) http.Handler {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "infractions.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("STREET,VIOLATION\n42 King St N,NO PARKING\n"), 0o644))

	cache := geocache.New(geocache.NewMemory(), provider)
	require.NoError(t, cache.Load(context.Background()))

	eng := engine.New(
		dataset.NewLoader(dataset.Source{Kind: model.KindInfraction, Path: path}),
		cache,
	)
	return newRouter(eng, promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}))
}

func kingStProvider() *tableProvider {
	return &tableProvider{coords: map[string]model.Coordinate{
		"42 king st n, waterloo, on, canada": {Lat: 43.4668, Lng: -80.5224},
	}}
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, kingStProvider())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_GeocodeStatus(t *testing.T) {
	router := newTestRouter(t, kingStProvider())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/geocode/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var status engine.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, 1, status.TotalAddresses)
	assert.Zero(t, status.Geocoded)
	assert.True(t, status.GeocodingEnabled)
}

func TestRouter_ProcessThenMarkers(t *testing.T) {
	router := newTestRouter(t, kingStProvider())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/geocode/process", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var report model.RunReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.NewlyResolved)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/markers", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Markers    []model.Marker            `json:"markers"`
		Unresolved []model.UnresolvedAddress `json:"unresolved"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Markers, 1)
	assert.Equal(t, "42 King St N", body.Markers[0].Title)
	assert.Empty(t, body.Unresolved)
}

func TestRouter_GeocodeSingle(t *testing.T) {
	router := newTestRouter(t, kingStProvider())

	payload, _ := json.Marshal(map[string]string{"address": "42 King St N"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/geocode/single", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, rr.Code)
	var coord model.Coordinate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &coord))
	assert.InDelta(t, 43.4668, coord.Lat, 0.0001)
}

func TestRouter_GeocodeSingle_EmptyAddress(t *testing.T) {
	provider := kingStProvider()
	router := newTestRouter(t, provider)

	payload, _ := json.Marshal(map[string]string{"address": ""})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/geocode/single", bytes.NewReader(payload)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, provider.calls.Load())
}

func TestRouter_GeocodeSingle_NotFound(t *testing.T) {
	router := newTestRouter(t, kingStProvider())

	payload, _ := json.Marshal(map[string]string{"address": "99 Nowhere Rd"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/geocode/single", bytes.NewReader(payload)))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_GeocodeSingle_MalformedBody(t *testing.T) {
	router := newTestRouter(t, kingStProvider())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/geocode/single", bytes.NewReader([]byte("{"))))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, kingStProvider())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}
