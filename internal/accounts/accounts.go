// Package accounts checks login credentials. The first login under a name
// registers it; later logins must present the same password.
package accounts

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/talgya/empire-exchange/internal/persistence"
)

var (
	ErrEmptyCredentials = errors.New("empty user name or password")
	ErrBadCredentials   = errors.New("wrong password")
	ErrPasswordTooLong  = errors.New("password longer than 72 bytes")
)

// Store persists password hashes.
type Store interface {
	UserHash(name string) (string, error)
	CreateUser(name, passwordHash string) error
}

// Manager authenticates users against a Store.
type Manager struct {
	store Store
	cost  int

	// Serialises lookup-then-register so two first logins can't race.
	// Checks against an existing hash run without it.
	registerMu sync.Mutex
}

// NewManager creates a Manager. A cost of 0 uses bcrypt.DefaultCost.
func NewManager(store Store, cost int) *Manager {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Manager{store: store, cost: cost}
}

// Authenticate checks name and pass, registering name on first use.
// It returns the canonical (lower-case) user name.
func (m *Manager) Authenticate(name, pass string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || pass == "" {
		return "", ErrEmptyCredentials
	}

	hash, err := m.lookup(name)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		hash, err = m.registerOnce(name, pass)
		if err != nil {
			return "", err
		}
		if hash == "" {
			return name, nil
		}
	case err != nil:
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)); err != nil {
		return "", ErrBadCredentials
	}
	return name, nil
}

func (m *Manager) lookup(name string) (string, error) {
	hash, err := m.store.UserHash(name)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return "", fmt.Errorf("look up user %s: %w", name, err)
	}
	return hash, err
}

// registerOnce registers name unless a concurrent login got there first, in
// which case it returns the stored hash for the caller to check.
func (m *Manager) registerOnce(name, pass string) (string, error) {
	m.registerMu.Lock()
	defer m.registerMu.Unlock()

	hash, err := m.lookup(name)
	switch {
	case err == nil:
		return hash, nil
	case !errors.Is(err, persistence.ErrNotFound):
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pass), m.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := m.store.CreateUser(name, string(hashed)); err != nil {
		return "", err
	}
	slog.Info("registered new user", "user", name)
	return "", nil
}

// SanitizeName makes a user name safe to use as an author tag and in mod
// file names.
func SanitizeName(name string) string {
	return strings.NewReplacer("/", "_", ".", "_").Replace(name)
}
