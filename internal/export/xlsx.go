// Package export writes geocoding results and markers to an XLSX workbook
// for the analysts who review runs by hand.
package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/kwparking/parksafe/internal/model"
)

// Workbook is the data one export run writes.
type Workbook struct {
	Entries []model.GeocodeEntry
	Markers []model.Marker
	Stats   model.CacheStats
}

// WriteFile writes the workbook to path: a coordinates sheet, a markers
// sheet, and a summary sheet. Sheets are sorted so repeated exports of the
// same data are identical.
func WriteFile(path string, wb Workbook) error {
	f := xlsx.NewFile()

	if err := addCoordinatesSheet(f, wb.Entries); err != nil {
		return err
	}
	if err := addMarkersSheet(f, wb.Markers); err != nil {
		return err
	}
	if err := addSummarySheet(f, wb); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addCoordinatesSheet(f *xlsx.File, entries []model.GeocodeEntry) error {
	sheet, err := f.AddSheet("Geocoded Coordinates")
	if err != nil {
		return eris.Wrap(err, "export: add coordinates sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{"Address", "Latitude", "Longitude", "Resolved At", "Source", "Confidence"} {
		header.AddCell().SetString(name)
	}

	sorted := append([]model.GeocodeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	for _, e := range sorted {
		row := sheet.AddRow()
		row.AddCell().SetString(e.Address)
		row.AddCell().SetFloat(e.Lat)
		row.AddCell().SetFloat(e.Lng)
		row.AddCell().SetString(e.ResolvedAt.UTC().Format(time.RFC3339))
		row.AddCell().SetString(string(e.Source))
		row.AddCell().SetFloat(e.Confidence)
	}
	return nil
}

func addMarkersSheet(f *xlsx.File, markers []model.Marker) error {
	sheet, err := f.AddSheet("Markers")
	if err != nil {
		return eris.Wrap(err, "export: add markers sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{"Title", "Latitude", "Longitude", "Score", "Level", "Infractions", "Street Parking", "Lots", "Description"} {
		header.AddCell().SetString(name)
	}

	sorted := append([]model.Marker(nil), markers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Title < sorted[j].Title })

	for _, m := range sorted {
		row := sheet.AddRow()
		row.AddCell().SetString(m.Title)
		row.AddCell().SetFloat(m.Position.Lat)
		row.AddCell().SetFloat(m.Position.Lng)
		row.AddCell().SetFloat(m.Score)
		row.AddCell().SetString(string(m.Level))
		row.AddCell().SetInt(m.Counts[model.KindInfraction])
		row.AddCell().SetInt(m.Counts[model.KindStreetParking])
		row.AddCell().SetInt(m.Counts[model.KindLot])
		row.AddCell().SetString(m.Description)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, wb Workbook) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	rows := []struct {
		label string
		value string
	}{
		{"Exported At", time.Now().UTC().Format(time.RFC3339)},
		{"Geocoded Addresses", fmt.Sprintf("%d", len(wb.Entries))},
		{"Markers", fmt.Sprintf("%d", len(wb.Markers))},
		{"Cache Total", fmt.Sprintf("%d", wb.Stats.Total)},
		{"Loaded From Cache", fmt.Sprintf("%d", wb.Stats.Cached)},
		{"Resolved This Run", fmt.Sprintf("%d", wb.Stats.ResolvedThisRun)},
		{"Failed", fmt.Sprintf("%d", wb.Stats.Failed)},
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.label)
		row.AddCell().SetString(r.value)
	}
	return nil
}
