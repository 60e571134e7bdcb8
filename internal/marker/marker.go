// Package marker converts scored location clusters into presentation-ready
// map markers.
package marker

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kwparking/parksafe/internal/dataset"
	"github.com/kwparking/parksafe/internal/model"
)

// styling maps a safety level to its fixed presentation.
var styling = map[model.SafetyLevel]struct {
	icon  string
	color string
}{
	model.LevelSafe:     {icon: "safe", color: "#00FF00"},
	model.LevelModerate: {icon: "moderate", color: "#FFFF00"},
	model.LevelRisky:    {icon: "risky", color: "#FF0000"},
	model.LevelUnknown:  {icon: "unknown", color: "#808080"},
}

var titleCaser = cases.Title(language.English)

// Builder turns clusters and their scores into markers.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build derives the marker for one scored cluster. It never fails; missing
// detail simply produces a sparser marker.
func (b *Builder) Build(cluster model.LocationCluster, score model.SafetyScore) model.Marker {
	style := styling[score.Level]
	if style.icon == "" {
		style = styling[model.LevelUnknown]
	}

	counts := make(map[model.DatasetKind]int, len(model.Kinds()))
	for _, kind := range model.Kinds() {
		if n := cluster.CountByKind(kind); n > 0 {
			counts[kind] = n
		}
	}

	return model.Marker{
		ClusterID:   cluster.ID,
		Position:    cluster.Coordinate,
		Title:       b.title(cluster),
		Icon:        style.icon,
		Color:       style.color,
		Description: b.description(score, counts),
		Score:       score.Score,
		Level:       score.Level,
		Counts:      counts,
	}
}

// BuildAll builds one marker per cluster, paired with scores by index.
func (b *Builder) BuildAll(clusters []model.LocationCluster, scores []model.SafetyScore) []model.Marker {
	markers := make([]model.Marker, 0, len(clusters))
	for i, c := range clusters {
		markers = append(markers, b.Build(c, scores[i]))
	}
	return markers
}

// title picks the most common raw address form among the cluster's records,
// falling back to the normalized address when the records disagree. Ties
// break alphabetically so output is stable.
func (b *Builder) title(cluster model.LocationCluster) string {
	counts := make(map[string]int)
	for _, rec := range cluster.Records {
		if raw := dataset.ExtractAddress(rec); raw != "" {
			counts[raw]++
		}
	}
	if len(counts) == 0 {
		return titleCaser.String(cluster.Address)
	}

	forms := make([]string, 0, len(counts))
	max := 0
	for form, n := range counts {
		if n > max {
			max = n
		}
		forms = append(forms, form)
	}
	sort.Strings(forms)

	var leaders []string
	for _, form := range forms {
		if counts[form] == max {
			leaders = append(leaders, form)
		}
	}
	if len(leaders) != 1 {
		return titleCaser.String(cluster.Address)
	}
	return titleCaser.String(strings.ToLower(leaders[0]))
}

func (b *Builder) description(score model.SafetyScore, counts map[model.DatasetKind]int) string {
	parts := make([]string, 0, 4)
	if n := counts[model.KindInfraction]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d infractions", n))
	}
	if n := counts[model.KindStreetParking]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d street parking segments", n))
	}
	if n := counts[model.KindLot]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d parking lots", n))
	}
	if len(parts) == 0 {
		return strings.Join(score.Reasoning, "; ")
	}
	return strings.Join(parts, ", ")
}
