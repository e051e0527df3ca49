package storefront

import (
	"log/slog"
	"net/http"

	"github.com/jmcleod/storefront/web"
)

// CheckoutPage handles GET /checkout.
func (a *Storefront) CheckoutPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, web.PageCheckout, "Checkout", nil)
}

// Checkout handles POST /checkout. Only presence of the five fields is
// checked; no payment is taken.
func (a *Storefront) Checkout(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	for _, field := range checkoutFields {
		if r.PostForm.Get(field) == "" {
			a.notify(r, "Please fill in all fields.")
			a.redirect(w, r, "/checkout")
			return
		}
	}

	s := sessionFromRequest(r)
	attrs := []slog.Attr{slog.Int("lines", s.Cart.Len())}
	if view, err := s.Cart.ComputeView(a.products); err == nil {
		attrs = append(attrs, slog.String("total", view.Total.String()))
	}
	s.Cart.Clear()

	a.audit.logEvent(AuditOrderPlaced, r, s.Username, attrs...)
	a.notify(r, "Order placed successfully! Thank you for your purchase.")
	a.redirect(w, r, "/")
}
