package account

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/storefront/internal/util"
)

var testParams = util.Argon2idParams{Time: 1, MemoryKiB: 64, Parallelism: 1, KeyLen: 32}

func newTestStore() *MemoryStore {
	return NewMemoryStore(WithHashParams(testParams))
}

func TestRegisterAndVerify(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.Register("alice", "wonderland"))
	assert.True(t, s.Exists("alice"))
	assert.True(t, s.Verify("alice", "wonderland"))
	assert.False(t, s.Verify("alice", "Wonderland"))
	assert.False(t, s.Verify("bob", "wonderland"))
}

func TestRegisterDuplicateKeepsOriginal(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Register("alice", "first-password"))
	before, ok := s.Get("alice")
	require.True(t, ok)

	err := s.Register("alice", "second-password")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	after, ok := s.Get("alice")
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.True(t, s.Verify("alice", "first-password"))
	assert.False(t, s.Verify("alice", "second-password"))
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Register("Alice", "pw-one"))
	require.NoError(t, s.Register("alice", "pw-two"))
	assert.True(t, s.Verify("Alice", "pw-one"))
	assert.True(t, s.Verify("alice", "pw-two"))
	assert.False(t, s.Verify("ALICE", "pw-one"))
}

func TestRegisterRequiresFields(t *testing.T) {
	s := newTestStore()
	assert.ErrorIs(t, s.Register("", "pw"), ErrInvalidInput)
	assert.ErrorIs(t, s.Register("user", ""), ErrInvalidInput)
	assert.False(t, s.Exists(""))
	assert.False(t, s.Exists("user"))
}

func TestSeed(t *testing.T) {
	s := newTestStore()
	hash, err := util.HashPassword("admin-secret", testParams)
	require.NoError(t, err)

	require.NoError(t, s.Seed("admin", hash))
	assert.True(t, s.Verify("admin", "admin-secret"))
	assert.ErrorIs(t, s.Register("admin", "other"), ErrAlreadyExists)

	t.Run("RejectsMalformedHash", func(t *testing.T) {
		assert.Error(t, s.Seed("root", "not-a-hash"))
		assert.False(t, s.Exists("root"))
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		assert.ErrorIs(t, s.Seed("", hash), ErrInvalidInput)
	})
}

func TestConcurrentRegisterSameUsername(t *testing.T) {
	s := newTestStore()
	const n = 20
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Register("racer", "pw") == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
