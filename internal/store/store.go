package store

import (
	"context"
	"errors"

	"authd/internal/model"
)

var (
	ErrNotFound          = errors.New("not_found")
	ErrDuplicateEmail    = errors.New("duplicate_email")
	ErrDuplicateUsername = errors.New("duplicate_username")
	ErrAlreadyLoggedIn   = errors.New("already_logged_in")
	ErrNotLoggedIn       = errors.New("not_logged_in")
	ErrRecoveryPending   = errors.New("recovery_pending")
)

// Store is the record store behind the account service. Operations that
// read-then-write (SetLoggedIn, SetRecoveryCode) are conditional updates:
// the state check and the write happen as one atomic step, so concurrent
// callers racing on the same account observe a sentinel error instead of a
// lost update.
type Store interface {
	// CreateAccount inserts a new record. A colliding email yields
	// ErrDuplicateEmail, a colliding username ErrDuplicateUsername.
	CreateAccount(ctx context.Context, a model.Account) (model.Account, error)

	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	// SetLoggedIn flips the login flag, guarded on the opposite current
	// value. Yields ErrNotFound, or ErrAlreadyLoggedIn / ErrNotLoggedIn
	// when the flag already matches.
	SetLoggedIn(ctx context.Context, username string, loggedIn bool) error

	// SetRecoveryCode stores a pending recovery code, guarded on no code
	// being set. Yields ErrNotFound or ErrRecoveryPending.
	SetRecoveryCode(ctx context.Context, username string, code int) (*model.Account, error)

	// ClearRecoveryCode removes a pending code. Clearing an account with
	// no code is not an error.
	ClearRecoveryCode(ctx context.Context, username string) error

	// DeleteAccount removes the record and returns the deleted snapshot.
	DeleteAccount(ctx context.Context, username string) (*model.Account, error)
}
