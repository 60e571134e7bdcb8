package model

import "time"

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeocodeSource records where a coordinate came from.
type GeocodeSource string

const (
	SourceAPI   GeocodeSource = "api"
	SourceCache GeocodeSource = "cache"
)

// GeocodeEntry is the durable mapping from a normalized address to its
// resolved coordinate. At most one successful entry exists per address;
// failed resolutions are never persisted so they can be retried later.
type GeocodeEntry struct {
	Address    string        `json:"address"`
	Lat        float64       `json:"lat"`
	Lng        float64       `json:"lng"`
	ResolvedAt time.Time     `json:"resolved_at"`
	Source     GeocodeSource `json:"source"`
	Confidence float64       `json:"confidence"`
}

// Coordinate returns the entry's coordinate pair.
func (e GeocodeEntry) Coordinate() Coordinate {
	return Coordinate{Lat: e.Lat, Lng: e.Lng}
}

// CacheStats summarizes the state of the geocode cache.
type CacheStats struct {
	Total           int `json:"total"`
	Cached          int `json:"cached"`
	ResolvedThisRun int `json:"resolved_this_run"`
	Failed          int `json:"failed"`
}

// RunReport is the outcome of one geocoding run.
type RunReport struct {
	Processed     int      `json:"processed"`
	NewlyResolved int      `json:"newly_resolved"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors,omitempty"`
}
