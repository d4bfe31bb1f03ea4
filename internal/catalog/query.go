package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField names a sortable product attribute.
type SortField string

const (
	SortByName     SortField = "name"
	SortByPrice    SortField = "price"
	SortByQuantity SortField = "quantity"
)

// SortDir is the sort direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Sort is the active sort control of the list screen.
type Sort struct {
	Field SortField
	Dir   SortDir
}

// DefaultSort orders by name ascending.
func DefaultSort() Sort {
	return Sort{Field: SortByName, Dir: SortAsc}
}

// ParseSort reads query values, falling back to defaults for unknown input.
func ParseSort(field, dir string) Sort {
	s := DefaultSort()
	switch SortField(field) {
	case SortByName, SortByPrice, SortByQuantity:
		s.Field = SortField(field)
	}
	if SortDir(dir) == SortDesc {
		s.Dir = SortDesc
	}
	return s
}

// Toggle returns the sort after the control for field is clicked: the active field flips
// direction, any other field starts ascending.
func (s Sort) Toggle(field SortField) Sort {
	if s.Field == field {
		if s.Dir == SortAsc {
			return Sort{Field: field, Dir: SortDesc}
		}
		return Sort{Field: field, Dir: SortAsc}
	}
	return Sort{Field: field, Dir: SortAsc}
}

// Query is the request-local list state: search text and sort.
type Query struct {
	Search string
	Sort   Sort
}

// Apply filters then sorts a copy of products.
func Apply(products []Product, q Query) []Product {
	out := Filter(products, q.Search)
	SortProducts(out, q.Sort)
	return out
}

// Filter keeps products whose name or description contains search, ignoring case.
// An empty search keeps everything. The result never aliases the input.
func Filter(products []Product, search string) []Product {
	out := make([]Product, 0, len(products))
	search = strings.TrimSpace(search)
	if search == "" {
		return append(out, products...)
	}
	fold := cases.Fold()
	needle := fold.String(search)
	for _, p := range products {
		if strings.Contains(fold.String(p.Name), needle) || strings.Contains(fold.String(p.Description), needle) {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts sorts in place. Names compare with locale-aware collation; ties keep
// their original order.
func SortProducts(products []Product, s Sort) {
	cmp := compareFunc(s.Field)
	sort.SliceStable(products, func(i, j int) bool {
		c := cmp(products[i], products[j])
		if s.Dir == SortDesc {
			return c > 0
		}
		return c < 0
	})
}

func compareFunc(field SortField) func(a, b Product) int {
	switch field {
	case SortByPrice:
		return func(a, b Product) int { return a.Price.Cmp(b.Price) }
	case SortByQuantity:
		return func(a, b Product) int {
			switch {
			case a.Quantity < b.Quantity:
				return -1
			case a.Quantity > b.Quantity:
				return 1
			}
			return 0
		}
	default:
		col := collate.New(language.Und)
		return func(a, b Product) int { return col.CompareString(a.Name, b.Name) }
	}
}
