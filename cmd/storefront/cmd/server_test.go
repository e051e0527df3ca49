package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/storefront/account"
	"github.com/jmcleod/storefront/catalog"
	"github.com/jmcleod/storefront/internal/util"
	"github.com/jmcleod/storefront/storefront"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "json", "warn")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "xml", "info")
	assert.Error(t, err)
	_, err = newLogger(&buf, "text", "loud")
	assert.Error(t, err)
}

func TestLoadProducts(t *testing.T) {
	products, err := loadProducts("")
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultProducts(), products)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`products:
  - name: Tea
    description: Green tea.
    price: 15.50
`), 0o600))
	products, err = loadProducts(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, products[0].ID)
	assert.Equal(t, catalog.Money(1550), products[0].Price)
	assert.Equal(t, catalog.DefaultImage, products[0].Image)

	_, err = loadProducts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAdminPasswordHash(t *testing.T) {
	t.Run("FromFlag", func(t *testing.T) {
		hash, generated, err := adminPasswordHash(serverOptions{adminPassword: "s3cret"})
		require.NoError(t, err)
		assert.Empty(t, generated)
		ok, err := util.VerifyPassword("s3cret", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("FromEnv", func(t *testing.T) {
		t.Setenv(adminPasswordEnv, "from-env")
		hash, generated, err := adminPasswordHash(serverOptions{})
		require.NoError(t, err)
		assert.Empty(t, generated)
		ok, _ := util.VerifyPassword("from-env", hash)
		assert.True(t, ok)
	})

	t.Run("Generated", func(t *testing.T) {
		t.Setenv(adminPasswordEnv, "")
		hash, generated, err := adminPasswordHash(serverOptions{})
		require.NoError(t, err)
		assert.Len(t, generated, generatedPasswordChars)
		ok, _ := util.VerifyPassword(generated, hash)
		assert.True(t, ok)
	})

	t.Run("PrecomputedHash", func(t *testing.T) {
		hash, generated, err := adminPasswordHash(serverOptions{adminPasswordHash: "$argon2id$precomputed"})
		require.NoError(t, err)
		assert.Empty(t, generated)
		assert.Equal(t, "$argon2id$precomputed", hash)
	})

	t.Run("BothRejected", func(t *testing.T) {
		_, _, err := adminPasswordHash(serverOptions{adminPassword: "x", adminPasswordHash: "y"})
		assert.Error(t, err)
	})
}

func TestHealthRoute(t *testing.T) {
	sessions := storefront.NewMemorySessionStore(0)
	defer sessions.Close()
	a, err := storefront.New(catalog.NewMemoryStore(), account.NewMemoryStore(),
		storefront.WithSessionStore(sessions))
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(newRouter(a))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"), "storefront routes still mounted")
}
