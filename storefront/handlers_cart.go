package storefront

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmcleod/storefront/catalog"
	"github.com/jmcleod/storefront/web"
)

// AddToCart handles POST /add_to_cart/{productID}.
func (a *Storefront) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	p, err := a.products.Get(id)
	if errors.Is(err, catalog.ErrNotFound) {
		a.notify(r, "Product not found.")
		a.redirect(w, r, "/")
		return
	}
	if err != nil {
		writeInternalError(w, r, a.logger, "failed to load product", err)
		return
	}

	s := sessionFromRequest(r)
	s.Cart.AddItem(strconv.Itoa(p.ID), 1)
	a.notify(r, fmt.Sprintf("Added %s to cart.", p.Name))
	a.redirect(w, r, refererTarget(r, "/"))
}

// ViewCart handles GET and POST /cart.
func (a *Storefront) ViewCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFromRequest(r)
	view, err := s.Cart.ComputeView(a.products)
	if err != nil {
		writeInternalError(w, r, a.logger, "failed to price cart", err)
		return
	}
	a.render(w, r, http.StatusOK, web.PageCart, "Cart", view)
}

// UpdateCart handles POST /update_cart. The cart is rebuilt from the
// quantities[<id>] fields; everything not submitted is dropped.
func (a *Storefront) UpdateCart(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	s := sessionFromRequest(r)
	s.Cart.ReplaceAll(quantityFields(r))
	a.notify(r, "Cart updated.")
	a.redirect(w, r, "/cart")
}

// RemoveFromCart handles POST /remove_from_cart/{productID}.
func (a *Storefront) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	s := sessionFromRequest(r)
	if s.Cart.RemoveItem(strconv.Itoa(id)) {
		a.notify(r, "Item removed from cart.")
	}
	a.redirect(w, r, "/cart")
}

// quantityFields extracts quantities[<id>] form fields keyed by id. Only
// the first value of a repeated field is used.
func quantityFields(r *http.Request) map[string]string {
	entries := make(map[string]string)
	for key, values := range r.PostForm {
		if len(values) == 0 || !strings.HasPrefix(key, quantityFieldPrefix) || !strings.HasSuffix(key, quantityFieldSuffix) {
			continue
		}
		id := key[len(quantityFieldPrefix) : len(key)-len(quantityFieldSuffix)]
		if id == "" {
			continue
		}
		entries[id] = values[0]
	}
	return entries
}
