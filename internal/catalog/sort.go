package catalog

import "fmt"

// SortField is one of a fixed set of sortable product columns. Lookups go
// through this registry; unrecognized names are rejected rather than
// resolved dynamically.
type SortField string

const (
	SortByName   SortField = "name"
	SortByColour SortField = "colour"
	SortByPrice  SortField = "price"
	SortByStock  SortField = "stock"
)

var sortColumns = map[SortField]string{
	SortByName:   "name",
	SortByColour: "colour",
	SortByPrice:  "price",
	SortByStock:  "stock",
}

// ParseSortField validates a caller-supplied field name.
func ParseSortField(name string) (SortField, error) {
	f := SortField(name)
	if _, ok := sortColumns[f]; !ok {
		return "", fmt.Errorf("unrecognized sort field %q", name)
	}
	return f, nil
}

// Filter narrows and orders a product listing.
type Filter struct {
	Search     string // substring match on the sort field; empty matches all
	SortBy     SortField
	Descending bool
}
