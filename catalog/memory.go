package catalog

import "sync"

// MemoryStore is a thread-safe in-memory Store. Products are lost on
// process restart.
type MemoryStore struct {
	mu       sync.RWMutex
	products []Product
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store pre-populated with the given products.
func NewMemoryStore(seed ...Product) *MemoryStore {
	products := make([]Product, len(seed))
	copy(products, seed)
	return &MemoryStore{products: products}
}

func (s *MemoryStore) Get(id int) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (s *MemoryStore) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

func (s *MemoryStore) Add(np NewProduct) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	image := np.Image
	if image == "" {
		image = DefaultImage
	}
	p := Product{
		ID:          nextID(s.products),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Image:       image,
	}
	s.products = append(s.products, p)
	return p, nil
}

func nextID(products []Product) int {
	maxID := 0
	for _, p := range products {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}
