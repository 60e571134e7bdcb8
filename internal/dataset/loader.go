package dataset

import (
	"context"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kwparking/parksafe/internal/model"
)

// Source names one CSV export on disk.
type Source struct {
	Kind model.DatasetKind
	Path string
}

// Loader reads a set of CSV sources into records.
type Loader struct {
	sources []Source
}

// NewLoader builds a loader over the given sources.
func NewLoader(sources ...Source) *Loader {
	return &Loader{sources: sources}
}

// Load parses every source. A missing file is logged and skipped so a partial
// data drop still produces a run; a malformed file fails the load.
func (l *Loader) Load(ctx context.Context) ([]model.RawRecord, error) {
	var all []model.RawRecord
	for _, src := range l.sources {
		if !src.Kind.Valid() {
			return nil, eris.Errorf("dataset: unknown kind %q", src.Kind)
		}

		f, err := os.Open(src.Path)
		if err != nil {
			if os.IsNotExist(err) {
				zap.L().Warn("dataset file missing, skipping",
					zap.String("kind", string(src.Kind)),
					zap.String("path", src.Path))
				continue
			}
			return nil, eris.Wrapf(err, "dataset: open %s", src.Path)
		}

		records, err := ReadRecords(ctx, f, src.Kind)
		f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: parse %s", src.Path)
		}

		zap.L().Info("dataset loaded",
			zap.String("kind", string(src.Kind)),
			zap.Int("records", len(records)))
		all = append(all, records...)
	}
	return all, nil
}

// UniqueAddresses returns the distinct raw addresses across records, sorted.
// Records without a recognizable address column are skipped.
func UniqueAddresses(records []model.RawRecord) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		addr := ExtractAddress(rec)
		if addr == "" {
			continue
		}
		seen[addr] = struct{}{}
	}

	addresses := make([]string, 0, len(seen))
	for addr := range seen {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	return addresses
}
