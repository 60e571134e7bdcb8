package dataset

import "github.com/kwparking/parksafe/internal/model"

// AddressFields returns the candidate address column names for a dataset
// kind, in lookup order. The city publishes each export with a different
// schema, so the extractor probes several known names.
func AddressFields(kind model.DatasetKind) []string {
	switch kind {
	case model.KindStreetParking:
		return []string{"STREET", "Location", "Address", "Street_Name"}
	case model.KindInfraction:
		return []string{"STREET", "ADDRESS", "Location", "Street", "Street_Name"}
	case model.KindLot:
		return []string{"Address", "Lot Name", "Location", "Name", "STREET", "Street"}
	default:
		return []string{"Location", "Address", "Street", "Street_Name", "STREET", "Name"}
	}
}

// ExtractAddress returns the record's raw address, or "" when no known
// address column carries a value.
func ExtractAddress(rec model.RawRecord) string {
	return rec.Field(AddressFields(rec.Kind)...)
}
