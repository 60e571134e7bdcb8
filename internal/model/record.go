package model

// DatasetKind identifies which municipal dataset a record came from.
type DatasetKind string

const (
	KindInfraction    DatasetKind = "infraction"
	KindStreetParking DatasetKind = "street_parking"
	KindLot           DatasetKind = "lot"
)

// Kinds lists all dataset kinds in stable order.
func Kinds() []DatasetKind {
	return []DatasetKind{KindInfraction, KindStreetParking, KindLot}
}

// Valid reports whether k is a known dataset kind.
func (k DatasetKind) Valid() bool {
	switch k {
	case KindInfraction, KindStreetParking, KindLot:
		return true
	}
	return false
}

// RawRecord is one row from a source dataset. Records are immutable once
// parsed; the engine never writes back into Fields.
type RawRecord struct {
	Kind   DatasetKind       `json:"kind"`
	Fields map[string]string `json:"fields"`
}

// Field returns the first non-empty value among the given field names.
func (r RawRecord) Field(names ...string) string {
	for _, name := range names {
		if v, ok := r.Fields[name]; ok && v != "" {
			return v
		}
	}
	return ""
}
