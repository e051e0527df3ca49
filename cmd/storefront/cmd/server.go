package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/storefront/account"
	"github.com/jmcleod/storefront/catalog"
	"github.com/jmcleod/storefront/internal/util"
	"github.com/jmcleod/storefront/storefront"
)

const (
	adminPasswordEnv       = "STOREFRONT_ADMIN_PASSWORD"
	generatedPasswordChars = 20
)

type serverOptions struct {
	port                int
	tlsCert             string
	tlsKey              string
	adminUser           string
	adminPassword       string
	adminPasswordHash   string
	catalogFile         string
	staticDir           string
	sessionTTL          time.Duration
	anonymousTTL        time.Duration
	sessionIdleTimeout  time.Duration
	discardCartOnLogout bool
	trustedProxies      []string
	logFormat           string
	logLevel            string
}

var serverOpts serverOptions

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the storefront web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd, serverOpts)
	},
}

func runServer(cmd *cobra.Command, opts serverOptions) error {
	logger, err := newLogger(cmd.ErrOrStderr(), opts.logFormat, opts.logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if (opts.tlsCert == "") != (opts.tlsKey == "") {
		return errors.New("--tls-cert and --tls-key must be given together")
	}

	products, err := loadProducts(opts.catalogFile)
	if err != nil {
		return err
	}

	accounts := account.NewMemoryStore()
	adminHash, generated, err := adminPasswordHash(opts)
	if err != nil {
		return err
	}
	if err := accounts.Seed(opts.adminUser, adminHash); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	proxies, err := storefront.ParseTrustedProxies(opts.trustedProxies)
	if err != nil {
		return fmt.Errorf("invalid --trusted-proxies: %w", err)
	}

	sessions := storefront.NewMemorySessionStore(opts.sessionIdleTimeout)
	defer sessions.Close()

	a, err := storefront.New(catalog.NewMemoryStore(products...), accounts,
		storefront.WithLogger(logger),
		storefront.WithSessionStore(sessions),
		storefront.WithSessionTTL(opts.sessionTTL),
		storefront.WithAnonymousSessionTTL(opts.anonymousTTL),
		storefront.WithAdminUsername(opts.adminUser),
		storefront.WithDiscardCartOnLogout(opts.discardCartOnLogout),
		storefront.WithTrustedProxies(proxies),
		storefront.WithImagesDir(opts.staticDir),
		storefront.WithAlertFunc(func(e storefront.AlertEvent) {
			logger.Warn("alert",
				slog.String("type", string(e.Type)),
				slog.String("message", e.Message),
				slog.Int("count", e.Count),
				slog.Int("threshold", e.Threshold))
		}),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.port),
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan error, 1)
	go func() {
		var err error
		if opts.tlsCert != "" {
			err = server.ListenAndServeTLS(opts.tlsCert, opts.tlsKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server failed: %w", err)
			return
		}
		done <- nil
	}()

	out := cmd.OutOrStdout()
	printBanner(out)
	fmt.Fprintf(out, "Starting server on port %d (%d products)...\n", opts.port, len(products))
	if generated != "" {
		fmt.Fprintf(out, "Generated password for %q: %s\n", opts.adminUser, generated)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-done:
		return err
	}
}

func newRouter(a *storefront.Storefront) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Mount("/", a.Router())
	return r
}

// newLogger builds the process logger from the --log-format and
// --log-level flags.
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want json or text", format)
	}
}

// loadProducts reads the seed catalog from path, or returns the built-in
// products when path is empty.
func loadProducts(path string) ([]catalog.Product, error) {
	if path == "" {
		return catalog.DefaultProducts(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	products, err := catalog.LoadSeed(f)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return products, nil
}

// adminPasswordHash resolves the admin credential. A precomputed hash wins;
// otherwise the password from the flag or environment is hashed. With
// neither, a random password is generated and returned for display.
func adminPasswordHash(opts serverOptions) (hash, generated string, err error) {
	if opts.adminPasswordHash != "" {
		if opts.adminPassword != "" {
			return "", "", errors.New("--admin-password and --admin-password-hash are mutually exclusive")
		}
		return opts.adminPasswordHash, "", nil
	}

	password := opts.adminPassword
	if password == "" {
		password = os.Getenv(adminPasswordEnv)
	}
	if password == "" {
		password, err = util.RandomChars(generatedPasswordChars)
		if err != nil {
			return "", "", err
		}
		generated = password
	}

	hash, err = util.HashPassword(password, util.DefaultArgon2idParams())
	if err != nil {
		return "", "", fmt.Errorf("hashing admin password: %w", err)
	}
	return hash, generated, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	f := serverCmd.Flags()
	f.IntVarP(&serverOpts.port, "port", "p", 8080, "Port to listen on")
	f.StringVar(&serverOpts.tlsCert, "tls-cert", "", "Path to TLS certificate file")
	f.StringVar(&serverOpts.tlsKey, "tls-key", "", "Path to TLS key file")
	f.StringVar(&serverOpts.adminUser, "admin-user", storefront.DefaultAdminUsername, "Username allowed into the admin panel")
	f.StringVar(&serverOpts.adminPassword, "admin-password", "", "Admin password (or set "+adminPasswordEnv+")")
	f.StringVar(&serverOpts.adminPasswordHash, "admin-password-hash", "", "Admin password hash from \"storefront hash-password\"")
	f.StringVar(&serverOpts.catalogFile, "catalog", "", "YAML file with the initial products")
	f.StringVar(&serverOpts.staticDir, "static-dir", "", "Directory of product images served under /static/images/")
	f.DurationVar(&serverOpts.sessionTTL, "session-ttl", 24*time.Hour, "Absolute session lifetime")
	f.DurationVar(&serverOpts.anonymousTTL, "anonymous-session-ttl", 15*time.Minute, "Sliding lifetime of sessions without a logged-in user")
	f.DurationVar(&serverOpts.sessionIdleTimeout, "session-idle-timeout", 0, "Expire sessions idle for this long (0 disables)")
	f.BoolVar(&serverOpts.discardCartOnLogout, "discard-cart-on-logout", false, "Destroy the whole session, cart included, on logout")
	f.StringSliceVar(&serverOpts.trustedProxies, "trusted-proxies", nil, "CIDRs whose X-Forwarded-For headers are trusted")
	f.StringVar(&serverOpts.logFormat, "log-format", "json", "Log format: json or text")
	f.StringVar(&serverOpts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}
