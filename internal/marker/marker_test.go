package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kwparking/parksafe/internal/model"
)

func record(kind model.DatasetKind, street string) model.RawRecord {
	field := "STREET"
	if kind == model.KindLot {
		field = "Address"
	}
	return model.RawRecord{Kind: kind, Fields: map[string]string{field: street}}
}

func testCluster(records ...model.RawRecord) model.LocationCluster {
	return model.LocationCluster{
		ID:         "cluster-1",
		Address:    "42 king st n, waterloo, on, canada",
		Coordinate: model.Coordinate{Lat: 43.4668, Lng: -80.5224},
		Records:    records,
	}
}

func TestBuild_TitleUsesMostCommonRawForm(t *testing.T) {
	cluster := testCluster(
		record(model.KindInfraction, "42 King St N"),
		record(model.KindInfraction, "42 King St N"),
		record(model.KindInfraction, "42 KING ST N"),
	)
	score := model.SafetyScore{ClusterID: cluster.ID, Score: 0.9, Level: model.LevelSafe}

	m := NewBuilder().Build(cluster, score)
	assert.Equal(t, "42 King St N", m.Title)
}

func TestBuild_TitleFallsBackOnTie(t *testing.T) {
	cluster := testCluster(
		record(model.KindInfraction, "42 King St N"),
		record(model.KindInfraction, "42 King Street North"),
	)
	score := model.SafetyScore{ClusterID: cluster.ID, Level: model.LevelModerate}

	m := NewBuilder().Build(cluster, score)
	assert.Equal(t, "42 King St N, Waterloo, On, Canada", m.Title)
}

func TestBuild_LevelStyling(t *testing.T) {
	tests := []struct {
		level model.SafetyLevel
		color string
	}{
		{model.LevelSafe, "#00FF00"},
		{model.LevelModerate, "#FFFF00"},
		{model.LevelRisky, "#FF0000"},
		{model.LevelUnknown, "#808080"},
	}

	cluster := testCluster(record(model.KindInfraction, "42 King St N"))
	for _, tt := range tests {
		m := NewBuilder().Build(cluster, model.SafetyScore{Level: tt.level})
		assert.Equal(t, tt.color, m.Color, string(tt.level))
		assert.Equal(t, tt.level, m.Level)
	}
}

func TestBuild_CountsAndDescription(t *testing.T) {
	cluster := testCluster(
		record(model.KindInfraction, "42 King St N"),
		record(model.KindInfraction, "42 King St N"),
		record(model.KindStreetParking, "42 King St N"),
		record(model.KindLot, "42 King St N"),
	)
	score := model.SafetyScore{ClusterID: cluster.ID, Score: 0.8, Level: model.LevelSafe}

	m := NewBuilder().Build(cluster, score)
	assert.Equal(t, 2, m.Counts[model.KindInfraction])
	assert.Equal(t, 1, m.Counts[model.KindStreetParking])
	assert.Equal(t, 1, m.Counts[model.KindLot])
	assert.Equal(t, "2 infractions, 1 street parking segments, 1 parking lots", m.Description)
	assert.InDelta(t, 43.4668, m.Position.Lat, 0.0001)
}

func TestBuild_NeverFailsOnEmptyCluster(t *testing.T) {
	cluster := testCluster()
	score := model.SafetyScore{
		ClusterID: cluster.ID,
		Level:     model.LevelUnknown,
		Reasoning: []string{"no infraction or parking data for this location"},
	}

	m := NewBuilder().Build(cluster, score)
	assert.Equal(t, "42 King St N, Waterloo, On, Canada", m.Title)
	assert.Equal(t, "#808080", m.Color)
	assert.Empty(t, m.Counts)
	assert.Equal(t, "no infraction or parking data for this location", m.Description)
}
