// Package merge groups parking records into location clusters keyed by
// resolved coordinate.
package merge

import (
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/kwparking/parksafe/internal/address"
	"github.com/kwparking/parksafe/internal/dataset"
	"github.com/kwparking/parksafe/internal/model"
)

// clusterNamespace keeps cluster IDs stable across runs for the same address.
var clusterNamespace = uuid.MustParse("7d2f3f5a-9f41-4b8a-bb1e-2c6d15a0c9d4")

// Lookup resolves a normalized address from the geocode cache. It must not
// reach the network; unresolved addresses are reported, not retried here.
type Lookup func(addr string) (model.GeocodeEntry, bool)

// Option configures a Merger.
type Option func(*Merger)

// WithCityHint overrides the city suffix used during normalization.
func WithCityHint(hint string) Option {
	return func(m *Merger) { m.cityHint = hint }
}

// WithRadius enables proximity merging: clusters whose coordinates are
// within radiusM meters of a larger cluster are folded into it. Zero keeps
// exact-address clustering.
func WithRadius(radiusM float64) Option {
	return func(m *Merger) { m.radiusM = radiusM }
}

// Merger groups records sharing a normalized address into clusters.
type Merger struct {
	cityHint string
	radiusM  float64
}

// New builds a Merger with exact-address clustering by default.
func New(opts ...Option) *Merger {
	m := &Merger{cityHint: address.DefaultCityHint}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge clusters records by normalized address. Records whose address has no
// cache entry land in the unresolved list and are excluded from clusters.
// Records carrying no address column at all are excluded too, but counted:
// they surface as a single unresolved entry so they never vanish silently.
// Output is deterministic: clusters and unresolved entries are sorted by
// address regardless of input order.
func (m *Merger) Merge(records []model.RawRecord, lookup Lookup) ([]model.LocationCluster, []model.UnresolvedAddress) {
	grouped := make(map[string][]model.RawRecord)
	missing := 0
	for _, rec := range records {
		raw := dataset.ExtractAddress(rec)
		if raw == "" {
			missing++
			continue
		}
		norm := address.Normalize(raw, m.cityHint)
		grouped[norm] = append(grouped[norm], rec)
	}

	var clusters []model.LocationCluster
	var unresolved []model.UnresolvedAddress
	if missing > 0 {
		unresolved = append(unresolved, model.UnresolvedAddress{
			Reason:  "missing address",
			Records: missing,
		})
	}
	for addr, recs := range grouped {
		entry, ok := lookup(addr)
		if !ok {
			unresolved = append(unresolved, model.UnresolvedAddress{
				Address: addr,
				Reason:  "no cached geocode result",
				Records: len(recs),
			})
			continue
		}
		clusters = append(clusters, model.LocationCluster{
			ID:         uuid.NewSHA1(clusterNamespace, []byte(addr)).String(),
			Address:    addr,
			Coordinate: entry.Coordinate(),
			Records:    recs,
		})
	}

	if m.radiusM > 0 {
		clusters = m.foldByRadius(clusters)
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Address < clusters[j].Address })
	sort.Slice(unresolved, func(i, j int) bool { return unresolved[i].Address < unresolved[j].Address })
	return clusters, unresolved
}

// foldByRadius merges clusters whose coordinates fall within radiusM meters
// of a larger cluster. Larger clusters absorb smaller ones and keep their
// own address and coordinate.
func (m *Merger) foldByRadius(clusters []model.LocationCluster) []model.LocationCluster {
	// Largest first so absorption is deterministic; ties break on address.
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].Records) != len(clusters[j].Records) {
			return len(clusters[i].Records) > len(clusters[j].Records)
		}
		return clusters[i].Address < clusters[j].Address
	})

	var folded []model.LocationCluster
	for _, c := range clusters {
		merged := false
		for i := range folded {
			if m.withinRadius(folded[i].Coordinate, c.Coordinate) {
				folded[i].Records = append(folded[i].Records, c.Records...)
				merged = true
				break
			}
		}
		if !merged {
			folded = append(folded, c)
		}
	}
	return folded
}

func (m *Merger) withinRadius(a, b model.Coordinate) bool {
	return geo.Distance(orb.Point{a.Lng, a.Lat}, orb.Point{b.Lng, b.Lat}) <= m.radiusM
}
