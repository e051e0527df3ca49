package catalog

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{in: "19.99", want: 1999},
		{in: "120", want: 12000},
		{in: " 4.5 ", want: 450},
		{in: "0", want: 0},
		{in: "-3.25", want: -325},
		{in: "1e2", want: 10000},
		{in: "0.005", want: 1},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "inf", wantErr: true},
		{in: "12,50", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPrice))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyFormatting(t *testing.T) {
	assert.Equal(t, "19.99", Money(1999).String())
	assert.Equal(t, "120.00", Money(12000).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-3.25", Money(-325).String())
	assert.InDelta(t, 19.99, Money(1999).Float64(), 1e-9)
	assert.Equal(t, Money(5997), Money(1999).Mul(3))
}

func TestMoneySaturates(t *testing.T) {
	big := Money(math.MaxInt64 / 2)
	assert.Equal(t, Money(math.MaxInt64), Money(12000).Mul(922337203685477))
	assert.Equal(t, Money(-math.MaxInt64), Money(-12000).Mul(922337203685477))
	assert.Equal(t, Money(math.MaxInt64), big.Add(big).Add(big))
	assert.Equal(t, Money(-math.MaxInt64), (-big).Add(-big).Add(-big))
	assert.Equal(t, Money(300), Money(100).Add(200))
	assert.Equal(t, Money(0), Money(0).Mul(5))
}

func TestMemoryStoreGet(t *testing.T) {
	s := NewMemoryStore(DefaultProducts()...)

	for _, p := range DefaultProducts() {
		got, err := s.Get(p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, p.Name, got.Name)
	}

	_, err := s.Get(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreAdd(t *testing.T) {
	t.Run("EmptyStartsAtOne", func(t *testing.T) {
		s := NewMemoryStore()
		p, err := s.Add(NewProduct{Name: "Mug", Description: "Clay mug", Price: 500})
		require.NoError(t, err)
		assert.Equal(t, 1, p.ID)
		assert.Equal(t, DefaultImage, p.Image)
	})

	t.Run("MaxPlusOne", func(t *testing.T) {
		s := NewMemoryStore(Product{ID: 3, Name: "a"}, Product{ID: 10, Name: "b"}, Product{ID: 7, Name: "c"})
		p, err := s.Add(NewProduct{Name: "d", Description: "d", Price: 1999, Image: "d.png"})
		require.NoError(t, err)
		assert.Equal(t, 11, p.ID)
		assert.Equal(t, "d.png", p.Image)

		got, err := s.Get(11)
		require.NoError(t, err)
		assert.Equal(t, Money(1999), got.Price)
		assert.Len(t, s.List(), 4)
	})

	t.Run("ListIsACopy", func(t *testing.T) {
		s := NewMemoryStore(DefaultProducts()...)
		list := s.List()
		list[0].Name = "mutated"
		got, _ := s.Get(list[0].ID)
		assert.Equal(t, "Premium Coffee", got.Name)
	})

	t.Run("ConcurrentAddsGetDistinctIDs", func(t *testing.T) {
		s := NewMemoryStore()
		const n = 50
		var wg sync.WaitGroup
		ids := make(chan int, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, err := s.Add(NewProduct{Name: "x", Description: "x", Price: 1})
				if err == nil {
					ids <- p.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[int]bool)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)
	})
}

func TestLoadSeed(t *testing.T) {
	doc := `
products:
  - id: 2
    name: Tea
    description: Green tea leaves.
    price: 7.5
    image: tea.jpg
  - name: Honey
    description: Raw forest honey.
    price: "12"
`
	products, err := LoadSeed(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, 2, products[0].ID)
	assert.Equal(t, Money(750), products[0].Price)
	assert.Equal(t, "tea.jpg", products[0].Image)

	assert.Equal(t, 3, products[1].ID)
	assert.Equal(t, Money(1200), products[1].Price)
	assert.Equal(t, DefaultImage, products[1].Image)
}

func TestLoadSeedErrors(t *testing.T) {
	tests := map[string]string{
		"BadPrice":     "products:\n  - id: 1\n    name: a\n    price: cheap\n",
		"MissingName":  "products:\n  - id: 1\n    price: 1\n",
		"DuplicateID":  "products:\n  - id: 1\n    name: a\n    price: 1\n  - id: 1\n    name: b\n    price: 1\n",
		"UnknownField": "products:\n  - id: 1\n    name: a\n    price: 1\n    colour: red\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadSeedEmpty(t *testing.T) {
	products, err := LoadSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, products)
}
