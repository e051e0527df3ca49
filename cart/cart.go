// Package cart implements the per-session shopping cart: an
// insertion-ordered mapping from product id to a positive quantity.
package cart

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/jmcleod/storefront/catalog"
)

// MaxQuantity bounds the quantity held for a single product.
const MaxQuantity = 10000

// Cart is not safe for concurrent use; each session owns its own copy.
type Cart struct {
	order []string
	qty   map[string]int
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{qty: make(map[string]int)}
}

// Entry is one cart line before product lookup.
type Entry struct {
	ProductID string
	Quantity  int
}

// AddItem increments the quantity held for productID, inserting it when
// absent. Non-positive quantities are ignored and the result is capped at
// MaxQuantity.
func (c *Cart) AddItem(productID string, quantity int) {
	if quantity <= 0 {
		return
	}
	if c.qty == nil {
		c.qty = make(map[string]int)
	}
	held, ok := c.qty[productID]
	if !ok {
		c.order = append(c.order, productID)
	}
	if quantity > MaxQuantity-held {
		c.qty[productID] = MaxQuantity
		return
	}
	c.qty[productID] = held + quantity
}

// RemoveItem deletes productID and reports whether it was present.
func (c *Cart) RemoveItem(productID string) bool {
	if _, ok := c.qty[productID]; !ok {
		return false
	}
	delete(c.qty, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// ReplaceAll discards the current contents and rebuilds the cart from raw
// submitted quantities. Values that do not parse as integers or are not
// strictly positive are dropped, and quantities above MaxQuantity are
// capped. Numeric ids must be in canonical form ("1", not "01" or "+1") so
// that one product never occupies two lines. Entries are inserted in
// ascending product id order.
func (c *Cart) ReplaceAll(entries map[string]string) {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })

	c.Clear()
	for _, id := range ids {
		if !canonicalID(id) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(entries[id]))
		if err != nil || n <= 0 {
			continue
		}
		c.AddItem(id, n)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.order = nil
	c.qty = make(map[string]int)
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.order)
}

// Quantity returns the quantity held for productID, or 0.
func (c *Cart) Quantity(productID string) int {
	return c.qty[productID]
}

// Entries returns the cart lines in insertion order.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, Entry{ProductID: id, Quantity: c.qty[id]})
	}
	return out
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return New()
	}
	cp := &Cart{
		order: append([]string(nil), c.order...),
		qty:   make(map[string]int, len(c.qty)),
	}
	for k, v := range c.qty {
		cp.qty[k] = v
	}
	return cp
}

// ProductLookup resolves product ids; catalog.Store satisfies it.
type ProductLookup interface {
	Get(id int) (catalog.Product, error)
}

// LineItem is a cart entry joined with its product.
type LineItem struct {
	ID          int
	Name        string
	Description string
	Price       catalog.Money
	Quantity    int
	Image       string
	LineTotal   catalog.Money
}

// View is the priced, render-ready form of a cart.
type View struct {
	Items []LineItem
	Total catalog.Money
}

// ComputeView prices every entry whose product still exists. Entries for
// unknown products are skipped but left in the cart. Lookup errors other
// than catalog.ErrNotFound are returned.
func (c *Cart) ComputeView(products ProductLookup) (View, error) {
	view := View{Items: make([]LineItem, 0, len(c.order))}
	for _, e := range c.Entries() {
		id, err := strconv.Atoi(e.ProductID)
		if err != nil {
			continue
		}
		p, err := products.Get(id)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return View{}, err
		}
		line := p.Price.Mul(e.Quantity)
		view.Items = append(view.Items, LineItem{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Quantity:    e.Quantity,
			Image:       p.Image,
			LineTotal:   line,
		})
		view.Total = view.Total.Add(line)
	}
	return view, nil
}

// canonicalID rejects numeric ids that are not spelled the way
// strconv.Itoa would spell them. Non-numeric ids pass; they never resolve
// to a product.
func canonicalID(id string) bool {
	n, err := strconv.Atoi(id)
	if err != nil {
		return true
	}
	return strconv.Itoa(n) == id
}

// lessID orders numeric ids numerically and everything else lexically
// after them.
func lessID(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}
