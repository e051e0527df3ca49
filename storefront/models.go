package storefront

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/storefront/catalog"
)

// maxFormBodySize bounds urlencoded form bodies.
const maxFormBodySize = 64 << 10

// Form field names.
const (
	fieldUsername    = "username"
	fieldPassword    = "password"
	fieldName        = "name"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldImage       = "image"
	fieldAddress     = "address"
	fieldCard        = "card"
	fieldExpiry      = "expiry"
	fieldCVV         = "cvv"

	quantityFieldPrefix = "quantities["
	quantityFieldSuffix = "]"
)

// checkoutFields must all be present for an order to be accepted.
var checkoutFields = []string{fieldName, fieldAddress, fieldCard, fieldExpiry, fieldCVV}

type homeContent struct {
	Products []catalog.Product
}

type productContent struct {
	Product catalog.Product
}

// parseForm reads a size-limited form body. It writes a 400 and returns
// false if the body cannot be parsed.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return false
	}
	return true
}

// productIDParam parses the {productID} route segment. Non-numeric ids do
// not match any route, so they get a plain 404.
func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil || id < 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
