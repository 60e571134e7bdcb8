package model

// LocationCluster is the set of records sharing one resolved coordinate,
// keyed by normalized address. Every record with a successful geocode
// belongs to exactly one cluster.
type LocationCluster struct {
	ID         string      `json:"id"`
	Address    string      `json:"address"`
	Coordinate Coordinate  `json:"coordinate"`
	Records    []RawRecord `json:"records"`
}

// CountByKind returns the number of member records of the given kind.
func (c LocationCluster) CountByKind(kind DatasetKind) int {
	n := 0
	for _, r := range c.Records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// UnresolvedAddress is a diagnostic entry for an address that could not be
// geocoded. Its records are excluded from clustering but reported so a later
// run can retry them.
type UnresolvedAddress struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
	Records int    `json:"records"`
}
