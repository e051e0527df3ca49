package account

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmcleod/storefront/internal/util"
)

// MemoryStore is a thread-safe in-memory credential Store. Registrations
// are lost on process restart.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]Credential
	params util.Argon2idParams
}

var _ Store = (*MemoryStore)(nil)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithHashParams overrides the argon2id cost parameters used for new
// registrations. Existing hashes carry their own parameters.
func WithHashParams(p util.Argon2idParams) Option {
	return func(s *MemoryStore) {
		s.params = p
	}
}

// NewMemoryStore creates an empty credential store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		data:   make(map[string]Credential),
		params: util.DefaultArgon2idParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed installs a credential from a precomputed argon2id hash, replacing
// any existing entry for username. It is meant for startup provisioning of
// the admin account.
func (s *MemoryStore) Seed(username, passwordHash string) error {
	if username == "" || passwordHash == "" {
		return ErrInvalidInput
	}
	// Reject hashes that could never verify.
	if _, err := util.VerifyPassword("", passwordHash); err != nil {
		return fmt.Errorf("seeding %q: %w", username, err)
	}
	s.mu.Lock()
	s.data[username] = Credential{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidInput
	}
	if s.Exists(username) {
		return ErrAlreadyExists
	}

	// Hash outside the lock and re-check below.
	hash, err := util.HashPassword(password, s.params)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[username]; ok {
		return ErrAlreadyExists
	}
	s.data[username] = Credential{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) Verify(username, password string) bool {
	s.mu.RLock()
	cred, ok := s.data[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	match, err := util.VerifyPassword(password, cred.PasswordHash)
	return err == nil && match
}

func (s *MemoryStore) Exists(username string) bool {
	s.mu.RLock()
	_, ok := s.data[username]
	s.mu.RUnlock()
	return ok
}

// Get returns the stored credential for username.
func (s *MemoryStore) Get(username string) (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.data[username]
	return cred, ok
}
