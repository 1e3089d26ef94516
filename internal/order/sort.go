package order

import "fmt"

// SortField is one of a fixed set of sortable order columns; the admin
// listing resolves field names through this registry only.
type SortField string

const (
	SortByReference  SortField = "reference"
	SortByTotalPrice SortField = "total_price"
	SortByOrderDate  SortField = "order_date"
	SortByStatus     SortField = "status"
)

var sortColumns = map[SortField]string{
	SortByReference:  "ref_number",
	SortByTotalPrice: "total_price",
	SortByOrderDate:  "order_date",
	SortByStatus:     "status",
}

// ParseSortField validates a caller-supplied field name.
func ParseSortField(name string) (SortField, error) {
	f := SortField(name)
	if _, ok := sortColumns[f]; !ok {
		return "", fmt.Errorf("unrecognized sort field %q", name)
	}
	return f, nil
}

type Filter struct {
	Search     string
	SortBy     SortField
	Descending bool
}
