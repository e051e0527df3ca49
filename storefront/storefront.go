// Package storefront serves the shop's HTML pages: catalog browsing, the
// session cart, checkout, login/registration and the admin panel.
package storefront

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/storefront/account"
	"github.com/jmcleod/storefront/catalog"
	"github.com/jmcleod/storefront/web"
)

const (
	// DefaultAdminUsername is the privileged account allowed into /admin.
	DefaultAdminUsername       = "admin"
	defaultSessionTTL          = 24 * time.Hour
	defaultAnonymousSessionTTL = 15 * time.Minute
	limiterSweepInterval       = 10 * time.Minute
)

// Storefront holds the dependencies needed by the HTTP handlers.
type Storefront struct {
	products catalog.Store
	accounts account.Store
	sessions SessionStore
	views    *web.Renderer
	static   http.Handler
	logger   *slog.Logger
	audit    *auditLogger
	limiters *rateLimiters

	adminUsername       string
	sessionTTL          time.Duration
	anonymousSessionTTL time.Duration
	discardCartOnLogout bool
	trustedProxies      []netip.Prefix
	imagesDir           string
	alertFn             AlertFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the Storefront instance.
type Option func(*Storefront)

// WithLogger sets the structured logger for application and audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Storefront) {
		a.logger = logger
	}
}

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(store SessionStore) Option {
	return func(a *Storefront) {
		a.sessions = store
	}
}

// WithSessionTTL sets the absolute lifetime of a session.
func WithSessionTTL(d time.Duration) Option {
	return func(a *Storefront) {
		if d > 0 {
			a.sessionTTL = d
		}
	}
}

// WithAnonymousSessionTTL sets how long a session without a logged-in user
// survives after its last request. Each request pushes the deadline out.
func WithAnonymousSessionTTL(d time.Duration) Option {
	return func(a *Storefront) {
		if d > 0 {
			a.anonymousSessionTTL = d
		}
	}
}

// WithAdminUsername sets the single username allowed into the admin panel.
func WithAdminUsername(username string) Option {
	return func(a *Storefront) {
		if username != "" {
			a.adminUsername = username
		}
	}
}

// WithDiscardCartOnLogout makes logout destroy the whole session, cart
// included, so the next user of the browser starts empty. By default
// logout only clears the username and the cart stays with the browser.
func WithDiscardCartOnLogout(discard bool) Option {
	return func(a *Storefront) {
		a.discardCartOnLogout = discard
	}
}

// WithTrustedProxies sets the proxy ranges whose forwarding headers are
// trusted when determining the client IP for rate limiting.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *Storefront) {
		a.trustedProxies = prefixes
	}
}

// WithImagesDir serves product images from dir under /static/images/.
func WithImagesDir(dir string) Option {
	return func(a *Storefront) {
		a.imagesDir = dir
	}
}

// WithAlertFunc registers a callback for anomaly alerts such as login
// failure spikes.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *Storefront) {
		a.alertFn = fn
	}
}

// New creates a Storefront over the given catalog and credential stores.
func New(products catalog.Store, accounts account.Store, opts ...Option) (*Storefront, error) {
	a := &Storefront{
		products:            products,
		accounts:            accounts,
		limiters:            newRateLimiters(),
		adminUsername:       DefaultAdminUsername,
		sessionTTL:          defaultSessionTTL,
		anonymousSessionTTL: defaultAnonymousSessionTTL,
		stopCh:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if a.sessions == nil {
		a.sessions = NewMemorySessionStore(0)
	}
	a.audit = newAuditLogger(a.logger)
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}

	views, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	a.views = views

	static, err := web.StaticHandler(a.imagesDir)
	if err != nil {
		return nil, err
	}
	a.static = static

	go a.sweepLoop()
	return a, nil
}

// Close stops background maintenance. It does not close the session store.
func (a *Storefront) Close() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
}

func (a *Storefront) sweepLoop() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.limiters.sweep()
		}
	}
}

// Router returns a chi.Router with all storefront routes mounted.
func (a *Storefront) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", docsSecurityHeaders(middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
		Title:   "Storefront routes",
	}, http.NotFoundHandler())))
	r.Handle("/static/*", http.StripPrefix("/static/", a.static))

	r.Group(func(r chi.Router) {
		r.Use(a.SessionMiddleware)
		r.Use(a.CSRFMiddleware)

		r.Get("/login", a.LoginPage)
		r.Post("/login", a.Login)
		r.Get("/logout", a.Logout)
		r.Get("/register", a.RegisterPage)
		r.Post("/register", a.Register)
		r.Get("/forgot-password", a.ForgotPassword)

		r.Group(func(r chi.Router) {
			r.Use(a.guard(a.requireAdmin))
			r.Get("/admin", a.AdminPage)
			r.Post("/admin", a.AddProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.guard(requireSession))
			r.Get("/", a.Home)
			r.Get("/product/{productID}", a.ProductDetail)
			r.Post("/add_to_cart/{productID}", a.AddToCart)
			r.Get("/cart", a.ViewCart)
			r.Post("/cart", a.ViewCart)
			r.Post("/update_cart", a.UpdateCart)
			r.Post("/remove_from_cart/{productID}", a.RemoveFromCart)
			r.Get("/checkout", a.CheckoutPage)
			r.Post("/checkout", a.Checkout)
		})
	})

	return r
}
