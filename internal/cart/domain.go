package cart

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storefront/internal/catalog"
)

// Item is a quantity of one product held in the cart. Items are keyed by ProductID;
// the cart holds at most one item per product.
type Item struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

// Line is an item resolved against the catalog.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int64           `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// View is the rendered cart: resolved lines plus totals. Items whose product no longer
// exists are left out of both.
type View struct {
	Lines []Line          `json:"lines"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
	// Items is the raw persisted cart, dangling references included.
	Items []Item `json:"items"`
}

// BuildView resolves items against products.
func BuildView(items []Item, products []catalog.Product) View {
	byID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	v := View{Lines: make([]Line, 0, len(items)), Total: decimal.Zero, Items: items}
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		sub := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		v.Lines = append(v.Lines, Line{Product: p, Quantity: it.Quantity, Subtotal: sub})
		v.Count += it.Quantity
		v.Total = v.Total.Add(sub)
	}
	return v
}
