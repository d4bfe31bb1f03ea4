package catalog

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fixtureFile struct {
	Products []fixtureProduct `yaml:"products"`
}

type fixtureProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Quantity    int64  `yaml:"quantity"`
	ImageURL    string `yaml:"image_url"`
}

// LoadFixture decodes a YAML catalog fixture into validated product inputs.
func LoadFixture(r io.Reader) ([]ProductInput, error) {
	var f fixtureFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: decode fixture: %w", err)
	}
	out := make([]ProductInput, 0, len(f.Products))
	for i, fp := range f.Products {
		price, err := decimal.NewFromString(fp.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog: fixture product %d: price %q: %w", i, fp.Price, err)
		}
		qty := fp.Quantity
		in := ProductInput{
			Name:        fp.Name,
			Description: fp.Description,
			Price:       price,
			Quantity:    &qty,
			ImageURL:    fp.ImageURL,
		}
		if err := Validate(in); err != nil {
			return nil, fmt.Errorf("catalog: fixture product %d: %w", i, err)
		}
		out = append(out, in)
	}
	return out, nil
}
