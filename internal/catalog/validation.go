package catalog

import (
	"errors"
	"strings"

	"github.com/odyssey-erp/storefront/internal/shared"
)

var validate = shared.NewValidator()

// Normalize trims surrounding whitespace from text fields.
func Normalize(in ProductInput) ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	return in
}

// priceScale is the number of decimal places a price may carry.
const priceScale = 2

// Validate checks a product form before it reaches a store. Rules: name of at least two
// characters, price above zero with at most two decimal places, quantity present and not
// negative, image URL well formed when given.
func Validate(in ProductInput) error {
	in = Normalize(in)
	err := shared.ValidateStruct(validate, in)
	if in.Price.Equal(in.Price.Truncate(priceScale)) {
		return err
	}
	const msg = "must have at most 2 decimal places"
	var verr *shared.ValidationError
	switch {
	case err == nil:
		return shared.NewValidationError("price", msg)
	case errors.As(err, &verr):
		if _, ok := verr.Fields["price"]; !ok {
			verr.Fields["price"] = msg
		}
	}
	return err
}
