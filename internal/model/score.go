package model

// SafetyLevel buckets a safety score for presentation.
type SafetyLevel string

const (
	LevelSafe     SafetyLevel = "safe"
	LevelModerate SafetyLevel = "moderate"
	LevelRisky    SafetyLevel = "risky"
	LevelUnknown  SafetyLevel = "unknown"
)

// FactorKind identifies one contribution to a safety score. The set is
// closed so score breakdowns stay statically checkable.
type FactorKind string

const (
	FactorBaseline      FactorKind = "baseline"
	FactorInfractions   FactorKind = "infractions"
	FactorStreetParking FactorKind = "street_parking"
	FactorLots          FactorKind = "lots"
)

// FactorContribution is one factor's numeric contribution to a score.
// Contributions appear in a fixed factor order so output is reproducible.
type FactorContribution struct {
	Factor FactorKind `json:"factor"`
	Value  float64    `json:"value"`
}

// SafetyScore is the derived, recomputed-per-run score for a cluster.
type SafetyScore struct {
	ClusterID string               `json:"cluster_id"`
	Score     float64              `json:"score"`
	Level     SafetyLevel          `json:"level"`
	Reasoning []string             `json:"reasoning"`
	Breakdown []FactorContribution `json:"breakdown"`
}
