// Package catalog holds the product records offered by the storefront.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when no product carries the requested id.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidPrice is returned when a price is not a finite decimal number.
	ErrInvalidPrice = errors.New("price must be a number")
)

// DefaultImage is used for products added without an image filename.
const DefaultImage = "default.jpg"

// Money is an amount in minor units (cents).
type Money int64

// ParseMoney parses decimal text such as "19.99" or "120" into Money,
// rounding to the nearest cent. Negative amounts are accepted.
func ParseMoney(s string) (Money, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/100 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return Money(math.Round(f * 100)), nil
}

// Float64 returns the amount in major units.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// Mul returns m multiplied by a quantity, saturating at the int64 bounds
// instead of wrapping.
func (m Money) Mul(qty int) Money {
	if m == 0 || qty == 0 {
		return 0
	}
	q := Money(qty)
	r := m * q
	if r/q != m || r == math.MinInt64 {
		if (m < 0) != (q < 0) {
			return -math.MaxInt64
		}
		return math.MaxInt64
	}
	return r
}

// Add returns m+o, saturating at the int64 bounds instead of wrapping.
func (m Money) Add(o Money) Money {
	sum := m + o
	switch {
	case m > 0 && o > 0 && sum < 0:
		return math.MaxInt64
	case m < 0 && o < 0 && (sum >= 0 || sum == math.MinInt64):
		return -math.MaxInt64
	}
	return sum
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Product is an immutable catalog entry.
type Product struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       Money  `yaml:"price"`
	Image       string `yaml:"image"`
}

// NewProduct carries the fields supplied when adding a product. The id is
// assigned by the store.
type NewProduct struct {
	Name        string
	Description string
	Price       Money
	Image       string
}

// Store is the catalog abstraction handed to the HTTP layer.
type Store interface {
	// Get returns the product with the given id or ErrNotFound.
	Get(id int) (Product, error)
	// List returns every product in insertion order.
	List() []Product
	// Add appends a product with id max(existing)+1 (1 when empty).
	Add(p NewProduct) (Product, error)
}
