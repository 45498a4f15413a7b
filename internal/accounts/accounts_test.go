package accounts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/talgya/empire-exchange/internal/persistence"
)

type memStore struct {
	hashes map[string]string
	err    error
}

func (s *memStore) UserHash(name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	h, ok := s.hashes[name]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return h, nil
}

func (s *memStore) CreateUser(name, hash string) error {
	s.hashes[name] = hash
	return nil
}

func TestAuthenticate(t *testing.T) {
	store := &memStore{hashes: map[string]string{}}
	m := NewManager(store, bcrypt.MinCost)

	t.Run("first login registers", func(t *testing.T) {
		name, err := m.Authenticate("Alice", "secret")
		require.NoError(t, err)
		assert.Equal(t, "alice", name)
		assert.Contains(t, store.hashes, "alice")
		assert.NotEqual(t, "secret", store.hashes["alice"])
	})

	t.Run("same password succeeds", func(t *testing.T) {
		name, err := m.Authenticate("ALICE", "secret")
		require.NoError(t, err)
		assert.Equal(t, "alice", name)
	})

	t.Run("wrong password fails", func(t *testing.T) {
		_, err := m.Authenticate("alice", "nope")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, err := m.Authenticate("", "secret")
		assert.ErrorIs(t, err, ErrEmptyCredentials)
		_, err = m.Authenticate("bob", "")
		assert.ErrorIs(t, err, ErrEmptyCredentials)
		assert.NotContains(t, store.hashes, "bob")
	})

	t.Run("store failure", func(t *testing.T) {
		broken := NewManager(&memStore{err: errors.New("disk gone")}, bcrypt.MinCost)
		_, err := broken.Authenticate("carol", "pw")
		assert.ErrorContains(t, err, "disk gone")
		assert.NotErrorIs(t, err, ErrBadCredentials)
	})
}

func TestAuthenticateTooLongPassword(t *testing.T) {
	store := &memStore{hashes: map[string]string{}}
	m := NewManager(store, bcrypt.MinCost)

	_, err := m.Authenticate("dave", strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.NotContains(t, store.hashes, "dave")
}

func TestExistingUserSkipsRegisterLock(t *testing.T) {
	store := &memStore{hashes: map[string]string{}}
	m := NewManager(store, bcrypt.MinCost)
	_, err := m.Authenticate("alice", "secret")
	require.NoError(t, err)

	m.registerMu.Lock()
	defer m.registerMu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := m.Authenticate("alice", "secret")
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("login of a registered user waited on registration")
	}
}

// lateStore reports a user missing on the first lookup only, as if another
// login registered it in between.
type lateStore struct {
	memStore
	lookups int
}

func (s *lateStore) UserHash(name string) (string, error) {
	s.lookups++
	if s.lookups == 1 {
		return "", persistence.ErrNotFound
	}
	return s.memStore.UserHash(name)
}

func TestConcurrentRegistrationChecksStoredHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("first"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &lateStore{memStore: memStore{hashes: map[string]string{"erin": string(hash)}}}
	m := NewManager(store, bcrypt.MinCost)

	_, err = m.Authenticate("erin", "second")
	assert.ErrorIs(t, err, ErrBadCredentials)
	assert.Equal(t, string(hash), store.hashes["erin"], "existing hash kept")

	store.lookups = 0
	name, err := m.Authenticate("erin", "first")
	require.NoError(t, err)
	assert.Equal(t, "erin", name)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeName("a/b.c"))
	assert.Equal(t, "plain", SanitizeName("plain"))
}
