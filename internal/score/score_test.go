package score

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwparking/parksafe/internal/model"
)

func clusterOf(records ...model.RawRecord) model.LocationCluster {
	return model.LocationCluster{ID: "c1", Address: "100 university ave, waterloo, on, canada", Records: records}
}

func infraction(violation string) model.RawRecord {
	fields := map[string]string{"STREET": "100 University Ave"}
	if violation != "" {
		fields["VIOLATION"] = violation
	}
	return model.RawRecord{Kind: model.KindInfraction, Fields: fields}
}

func streetParking() model.RawRecord {
	return model.RawRecord{Kind: model.KindStreetParking, Fields: map[string]string{"STREET": "100 University Ave"}}
}

func lot() model.RawRecord {
	return model.RawRecord{Kind: model.KindLot, Fields: map[string]string{"Address": "100 University Ave"}}
}

func TestScore_InfractionsOffsetByParking(t *testing.T) {
	cluster := clusterOf(infraction(""), infraction(""), infraction(""), streetParking())

	got := New(DefaultWeights()).Score(cluster, 10)

	// 1.0 - 0.6*(3/10) + 0.1 street bonus.
	assert.InDelta(t, 0.92, got.Score, 0.0001)
	assert.Equal(t, model.LevelSafe, got.Level)
	assert.Contains(t, got.Reasoning, "3 infractions recorded nearby")
	assert.Contains(t, got.Reasoning, "street parking available")
}

func TestScore_Breakdown(t *testing.T) {
	cluster := clusterOf(infraction(""), streetParking(), lot(), lot())

	got := New(DefaultWeights()).Score(cluster, 10)

	require.Len(t, got.Breakdown, 4)
	assert.Equal(t, model.FactorBaseline, got.Breakdown[0].Factor)
	assert.InDelta(t, 1.0, got.Breakdown[0].Value, 0.0001)
	assert.Equal(t, model.FactorInfractions, got.Breakdown[1].Factor)
	assert.InDelta(t, -0.06, got.Breakdown[1].Value, 0.0001)
	assert.Equal(t, model.FactorStreetParking, got.Breakdown[2].Factor)
	assert.InDelta(t, 0.1, got.Breakdown[2].Value, 0.0001)
	assert.Equal(t, model.FactorLots, got.Breakdown[3].Factor)
	assert.InDelta(t, 0.1, got.Breakdown[3].Value, 0.0001)
	assert.Contains(t, got.Reasoning, "2 parking lots within walking distance")
}

func TestScore_UnknownWhenNoData(t *testing.T) {
	got := New(DefaultWeights()).Score(clusterOf(), 10)

	assert.Equal(t, model.LevelUnknown, got.Level)
	assert.Zero(t, got.Score)
	require.Len(t, got.Breakdown, 4)
	for _, fc := range got.Breakdown {
		assert.Zero(t, fc.Value)
	}
}

func TestScore_ClampedForExtremeCounts(t *testing.T) {
	var records []model.RawRecord
	for i := 0; i < 500; i++ {
		records = append(records, infraction("FIRE ROUTE"))
	}
	cluster := clusterOf(records...)

	got := New(Weights{Infraction: 5, StreetParkingBonus: 0.1, LotBonus: 0.1}).
		Score(cluster, InfractionWeight(cluster))

	assert.GreaterOrEqual(t, got.Score, 0.0)
	assert.LessOrEqual(t, got.Score, 1.0)
	assert.Equal(t, model.LevelRisky, got.Level)
}

func TestScore_IndependentOfRecordOrder(t *testing.T) {
	records := []model.RawRecord{
		infraction("NO PARKING"), infraction("EXPIRED METER"), streetParking(), lot(),
	}
	base := New(DefaultWeights()).Score(clusterOf(records...), 10)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.RawRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := New(DefaultWeights()).Score(clusterOf(shuffled...), 10)
		assert.Equal(t, base, got)
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		violation string
		want      float64
	}{
		{"FIRE ROUTE", 2.0},
		{"Parked in fire route", 2.0},
		{"NO PARKING 2AM-6AM", 1.5},
		{"EXPIRED METER", 0.8},
		{"SOMETHING NOVEL", 1.0},
		{"", 1.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Severity(tt.violation), 0.0001, tt.violation)
	}
}

func TestSeverity_WeightsInfractionPenalty(t *testing.T) {
	mild := clusterOf(infraction("TIME LIMIT EXCEEDED"))
	harsh := clusterOf(infraction("FIRE ROUTE"))

	assert.Greater(t, InfractionWeight(harsh), InfractionWeight(mild))

	scorer := New(DefaultWeights())
	max := MaxInfractionWeight([]model.LocationCluster{mild, harsh})
	assert.Greater(t, scorer.Score(mild, max).Score, scorer.Score(harsh, max).Score)
}

func TestScoreAll_NormalizesAgainstDatasetMax(t *testing.T) {
	busy := clusterOf(infraction(""), infraction(""), infraction(""), infraction(""))
	quiet := model.LocationCluster{ID: "c2", Address: "b", Records: []model.RawRecord{infraction("")}}

	scores := New(DefaultWeights()).ScoreAll([]model.LocationCluster{busy, quiet})
	require.Len(t, scores, 2)

	// The busiest cluster takes the full infraction penalty.
	assert.InDelta(t, 0.4, scores[0].Score, 0.0001)
	assert.InDelta(t, 0.85, scores[1].Score, 0.0001)
}
