// Package dataset loads the municipal parking CSV exports and maps their
// rows into records the rest of the engine consumes.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kwparking/parksafe/internal/model"
)

// ReadRecords parses CSV content into records, mapping each row against the
// header. Rows with more fields than the header keep only the named columns;
// short rows leave the missing columns absent. Placeholder values the city
// exports use for blanks ("nan", "none") are dropped.
func ReadRecords(ctx context.Context, r io.Reader, kind model.DatasetKind) ([]model.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read header")
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	var records []model.RawRecord
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "dataset: context cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "dataset: read row")
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value == "" || isPlaceholder(value) {
				continue
			}
			fields[name] = value
		}
		records = append(records, model.RawRecord{Kind: kind, Fields: fields})
	}
}

func isPlaceholder(v string) bool {
	switch strings.ToLower(v) {
	case "nan", "none", "null", "n/a":
		return true
	}
	return false
}
