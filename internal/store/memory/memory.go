package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"authd/internal/model"
	"authd/internal/store"

	"github.com/google/uuid"
)

// Store is an in-memory record store keyed by username. The mutex covers
// each operation end to end, so every check-then-write is atomic with
// respect to concurrent requests.
type Store struct {
	mu       sync.Mutex
	accounts map[string]model.Account
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]model.Account),
	}
}

func (s *Store) CreateAccount(_ context.Context, a model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return model.Account{}, store.ErrDuplicateEmail
		}
	}
	if _, ok := s.accounts[a.Username]; ok {
		return model.Account{}, store.ErrDuplicateUsername
	}

	now := time.Now().UTC()
	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts[a.Username] = a
	return a, nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := a
	return &out, nil
}

func (s *Store) SetLoggedIn(_ context.Context, username string, loggedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return store.ErrNotFound
	}
	if a.LoggedIn == loggedIn {
		if loggedIn {
			return store.ErrAlreadyLoggedIn
		}
		return store.ErrNotLoggedIn
	}

	a.LoggedIn = loggedIn
	a.UpdatedAt = time.Now().UTC()
	s.accounts[username] = a
	return nil
}

func (s *Store) SetRecoveryCode(_ context.Context, username string, code int) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.RecoveryCode != nil {
		return nil, store.ErrRecoveryPending
	}

	a.RecoveryCode = &code
	a.UpdatedAt = time.Now().UTC()
	s.accounts[username] = a
	out := a
	return &out, nil
}

func (s *Store) ClearRecoveryCode(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return store.ErrNotFound
	}
	if a.RecoveryCode == nil {
		return nil
	}

	a.RecoveryCode = nil
	a.UpdatedAt = time.Now().UTC()
	s.accounts[username] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, username string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.accounts, username)
	out := a
	return &out, nil
}
