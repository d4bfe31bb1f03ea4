package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	ImageURL    string          `json:"image_url,omitempty"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductInput is the user-editable part of a product as submitted by forms and the API.
// Quantity is a pointer so an omitted value is distinguishable from zero stock.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"required,gt=0"`
	Quantity    *int64          `json:"quantity" validate:"required,gte=0"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	// Version is the version the editor started from. Zero skips the stale-write check.
	Version int64 `json:"version"`
}

// Product converts the input into a record without identity.
func (in ProductInput) Product() Product {
	var qty int64
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	return Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    qty,
		ImageURL:    in.ImageURL,
		Version:     in.Version,
	}
}

// InputFrom returns the editable fields of p, used to prefill edit forms.
func InputFrom(p Product) ProductInput {
	qty := p.Quantity
	return ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    &qty,
		ImageURL:    p.ImageURL,
		Version:     p.Version,
	}
}
