package storefront

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmcleod/storefront/catalog"
	"github.com/jmcleod/storefront/web"
)

// AdminPage handles GET /admin.
func (a *Storefront) AdminPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, web.PageAdmin, "Admin", nil)
}

// AddProduct handles POST /admin.
func (a *Storefront) AddProduct(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	name := r.PostForm.Get(fieldName)
	description := r.PostForm.Get(fieldDescription)
	rawPrice := r.PostForm.Get(fieldPrice)
	image := r.PostForm.Get(fieldImage)
	if image == "" {
		image = catalog.DefaultImage
	}

	if name == "" || description == "" || rawPrice == "" {
		a.notify(r, "Please fill all product fields.")
		a.redirect(w, r, "/admin")
		return
	}
	price, err := catalog.ParseMoney(rawPrice)
	if err != nil {
		a.notify(r, "Price must be a number.")
		a.redirect(w, r, "/admin")
		return
	}

	p, err := a.products.Add(catalog.NewProduct{
		Name:        name,
		Description: description,
		Price:       price,
		Image:       image,
	})
	if err != nil {
		writeInternalError(w, r, a.logger, "failed to add product", err)
		return
	}

	a.audit.logEvent(AuditProductAdded, r, sessionFromRequest(r).Username,
		slog.Int("product_id", p.ID),
		slog.String("price", p.Price.String()))
	a.notify(r, fmt.Sprintf("Product %s added.", p.Name))
	a.redirect(w, r, "/admin")
}
