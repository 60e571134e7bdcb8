// Package score computes relative safety scores for location clusters. The
// scorer is a pure function of cluster contents so it can be tested without
// any geocoding or storage.
package score

import (
	"fmt"
	"strings"

	"github.com/kwparking/parksafe/internal/model"
)

// Weights tune the contribution of each factor. The infraction penalty is
// relative: a cluster carrying the dataset-wide maximum infraction weight
// loses the full Infraction weight.
type Weights struct {
	Infraction         float64
	StreetParkingBonus float64
	LotBonus           float64
}

// DefaultWeights mirror the scoring the city's analysts settled on.
func DefaultWeights() Weights {
	return Weights{
		Infraction:         0.6,
		StreetParkingBonus: 0.1,
		LotBonus:           0.1,
	}
}

// severityTable weights infraction types by how aggressively they are
// enforced. Ordered so a description matching several entries always picks
// the same one; unlisted violation types count as 1.0.
var severityTable = []struct {
	match  string
	weight float64
}{
	{"FIRE ROUTE", 2.0},
	{"HANDICAP", 1.8},
	{"NO PARKING", 1.5},
	{"RESERVED", 1.4},
	{"PERMIT PARKING ONLY", 1.3},
	{"LOADING ZONE", 1.2},
	{"OVERTIME PARKING", 0.9},
	{"EXPIRED METER", 0.8},
	{"METER VIOLATION", 0.8},
	{"TIME LIMIT EXCEEDED", 0.7},
}

// violationFields are the columns the infraction export may use for the
// violation description.
var violationFields = []string{"VIOLATION", "INFRACTION", "REASON", "Description", "DESCRIPTION"}

// Scorer derives safety scores from clusters.
type Scorer struct {
	weights Weights
}

// New builds a Scorer. Zero-valued weights fall back to the defaults.
func New(weights Weights) *Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Severity returns the enforcement weight for a violation description.
func Severity(violation string) float64 {
	upper := strings.ToUpper(violation)
	for _, entry := range severityTable {
		if strings.Contains(upper, entry.match) {
			return entry.weight
		}
	}
	return 1.0
}

// InfractionWeight sums severity-weighted infraction counts for a cluster.
func InfractionWeight(cluster model.LocationCluster) float64 {
	total := 0.0
	for _, rec := range cluster.Records {
		if rec.Kind != model.KindInfraction {
			continue
		}
		total += Severity(rec.Field(violationFields...))
	}
	return total
}

// MaxInfractionWeight returns the highest severity-weighted infraction count
// across clusters, used to normalize penalties.
func MaxInfractionWeight(clusters []model.LocationCluster) float64 {
	max := 0.0
	for _, c := range clusters {
		if w := InfractionWeight(c); w > max {
			max = w
		}
	}
	return max
}

// Score computes the safety score for one cluster. maxInfractionWeight is
// the dataset-wide maximum from MaxInfractionWeight; zero disables the
// infraction penalty. Deterministic and independent of record order.
func (s *Scorer) Score(cluster model.LocationCluster, maxInfractionWeight float64) model.SafetyScore {
	infractions := cluster.CountByKind(model.KindInfraction)
	streetSpots := cluster.CountByKind(model.KindStreetParking)
	lots := cluster.CountByKind(model.KindLot)

	if infractions == 0 && streetSpots == 0 && lots == 0 {
		return model.SafetyScore{
			ClusterID: cluster.ID,
			Score:     0,
			Level:     model.LevelUnknown,
			Reasoning: []string{"no infraction or parking data for this location"},
			Breakdown: []model.FactorContribution{
				{Factor: model.FactorBaseline, Value: 0},
				{Factor: model.FactorInfractions, Value: 0},
				{Factor: model.FactorStreetParking, Value: 0},
				{Factor: model.FactorLots, Value: 0},
			},
		}
	}

	penalty := 0.0
	if maxInfractionWeight > 0 {
		penalty = s.weights.Infraction * (InfractionWeight(cluster) / maxInfractionWeight)
	}

	streetBonus := 0.0
	if streetSpots > 0 {
		streetBonus = s.weights.StreetParkingBonus
	}
	lotBonus := 0.0
	if lots > 0 {
		lotBonus = s.weights.LotBonus
	}

	value := clamp(1.0 - penalty + streetBonus + lotBonus)

	var reasoning []string
	switch infractions {
	case 0:
		reasoning = append(reasoning, "no infractions recorded nearby")
	case 1:
		reasoning = append(reasoning, "1 infraction recorded nearby")
	default:
		reasoning = append(reasoning, fmt.Sprintf("%d infractions recorded nearby", infractions))
	}
	if streetSpots > 0 {
		reasoning = append(reasoning, "street parking available")
	}
	if lots == 1 {
		reasoning = append(reasoning, "1 parking lot within walking distance")
	} else if lots > 1 {
		reasoning = append(reasoning, fmt.Sprintf("%d parking lots within walking distance", lots))
	}

	return model.SafetyScore{
		ClusterID: cluster.ID,
		Score:     value,
		Level:     levelFor(value),
		Reasoning: reasoning,
		Breakdown: []model.FactorContribution{
			{Factor: model.FactorBaseline, Value: 1.0},
			{Factor: model.FactorInfractions, Value: -penalty},
			{Factor: model.FactorStreetParking, Value: streetBonus},
			{Factor: model.FactorLots, Value: lotBonus},
		},
	}
}

// ScoreAll scores every cluster against the dataset-wide maximum.
func (s *Scorer) ScoreAll(clusters []model.LocationCluster) []model.SafetyScore {
	max := MaxInfractionWeight(clusters)
	scores := make([]model.SafetyScore, len(clusters))
	for i, c := range clusters {
		scores[i] = s.Score(c, max)
	}
	return scores
}

func levelFor(v float64) model.SafetyLevel {
	switch {
	case v >= 0.7:
		return model.LevelSafe
	case v >= 0.4:
		return model.LevelModerate
	default:
		return model.LevelRisky
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
