package model

// Marker is the presentation-ready record derived 1:1 from a cluster and its
// safety score. Markers are created fresh per run and never mutated.
type Marker struct {
	ClusterID   string              `json:"cluster_id"`
	Position    Coordinate          `json:"position"`
	Title       string              `json:"title"`
	Icon        string              `json:"icon"`
	Color       string              `json:"color"`
	Description string              `json:"description"`
	Score       float64             `json:"score"`
	Level       SafetyLevel         `json:"level"`
	Counts      map[DatasetKind]int `json:"counts"`
}
