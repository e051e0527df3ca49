package catalog

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DefaultProducts returns the products the storefront starts with when no
// seed file is configured.
func DefaultProducts() []Product {
	return []Product{
		{ID: 1, Name: "Premium Coffee", Description: "Freshly roasted premium coffee beans from Ghana.", Price: 12000, Image: "c.jpg"},
		{ID: 2, Name: "Handmade Basket", Description: "Colorful woven basket made by local artisans.", Price: 25000, Image: "b.webp"},
		{ID: 3, Name: "Shea Butter Cream", Description: "Natural moisturizing cream made from organic shea butter.", Price: 18000, Image: "sb.jpg"},
		{ID: 4, Name: "Kente Cloth", Description: "Traditional Ghanaian Kente cloth, vibrant and authentic.", Price: 45000, Image: "k.jpg"},
		{ID: 5, Name: "Cocoa Powder", Description: "Pure Ghanaian cocoa powder for baking and drinks.", Price: 10000, Image: "cp.jpg"},
		{ID: 6, Name: "Dawadawa Spice", Description: "Fermented African locust bean spice used in local cooking.", Price: 9000, Image: "d.webp"},
	}
}

type seedFile struct {
	Products []Product `yaml:"products"`
}

// UnmarshalYAML accepts prices written as plain YAML numbers or strings.
func (m *Money) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w", node.Line, ErrInvalidPrice)
	}
	v, err := ParseMoney(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = v
	return nil
}

// MarshalYAML writes the price as a decimal string.
func (m Money) MarshalYAML() (any, error) {
	return m.String(), nil
}

// LoadSeed reads a YAML document of the form
//
//	products:
//	  - id: 1
//	    name: Premium Coffee
//	    description: Freshly roasted beans.
//	    price: 120.00
//	    image: c.jpg
//
// Products without an id are numbered after the highest id seen so far.
// Missing images fall back to DefaultImage.
func LoadSeed(r io.Reader) ([]Product, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding catalog seed: %w", err)
	}

	seen := make(map[int]bool, len(doc.Products))
	out := make([]Product, 0, len(doc.Products))
	for i, p := range doc.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog seed entry %d: name is required", i)
		}
		if p.ID < 0 {
			return nil, fmt.Errorf("catalog seed entry %d: id must be positive", i)
		}
		if p.ID == 0 {
			p.ID = nextID(out)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog seed entry %d: duplicate id %d", i, p.ID)
		}
		if p.Image == "" {
			p.Image = DefaultImage
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}
