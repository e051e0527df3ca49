package storefront

import (
	"errors"
	"net/http"

	"github.com/jmcleod/storefront/catalog"
	"github.com/jmcleod/storefront/web"
)

// Home handles GET /.
func (a *Storefront) Home(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, web.PageHome, "Products", homeContent{
		Products: a.products.List(),
	})
}

// ProductDetail handles GET /product/{productID}.
func (a *Storefront) ProductDetail(w http.ResponseWriter, r *http.Request) {
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
	a.render(w, r, http.StatusOK, web.PageProduct, p.Name, productContent{Product: p})
}
