// Package account implements the account state machine: signup with
// duplicate prevention, login/logout, deletion, and recovery-code issuance.
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"authd/internal/auth"
	"authd/internal/model"
	"authd/internal/store"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password, so a caller cannot probe which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCreationFailed is returned when the store reports no created
	// record for a signup that passed the duplicate checks.
	ErrCreationFailed = errors.New("account creation failed")
)

// IdentifierKind selects the unique field a login looks up by.
type IdentifierKind string

const (
	ByEmail    IdentifierKind = "email"
	ByUsername IdentifierKind = "username"
)

// Recovery codes are six-digit integers in [100000, 1000000).
const (
	recoveryCodeMin  = 100000
	recoveryCodeSpan = 900000
)

// dummyPasswordHash is verified against when the login identifier is
// unknown, so the response takes the same time as a wrong password and
// does not reveal whether the account exists.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CheckDuplicateEmail reports whether an account with the email exists.
// Absence is not an error.
func (s *Service) CheckDuplicateEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate email: %w", err)
	}
	return true, nil
}

// CheckDuplicateUsername reports whether an account with the username
// exists. Absence is not an error.
func (s *Service) CheckDuplicateUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate username: %w", err)
	}
	return true, nil
}

// Signup creates a new account in the logged-out state with no pending
// recovery code. The email duplicate check runs before the username check,
// so the email error wins when both collide. Nothing is written until both
// checks pass; the store's unique constraints back the same ordering if a
// concurrent signup slips between check and insert.
func (s *Service) Signup(ctx context.Context, email, username, password string) (model.Account, error) {
	dup, err := s.CheckDuplicateEmail(ctx, email)
	if err != nil {
		return model.Account{}, err
	}
	if dup {
		return model.Account{}, store.ErrDuplicateEmail
	}

	dup, err = s.CheckDuplicateUsername(ctx, username)
	if err != nil {
		return model.Account{}, err
	}
	if dup {
		return model.Account{}, store.ErrDuplicateUsername
	}

	hash, err := auth.HashSecret(password)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateAccount(ctx, model.Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		LoggedIn:     false,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) || errors.Is(err, store.ErrDuplicateUsername) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	if created.PasswordHash == "" {
		return model.Account{}, ErrCreationFailed
	}
	return created, nil
}

// Login looks up the account by the chosen identifier, verifies the
// password, and flips the login flag. Unknown identifier and wrong password
// both yield ErrInvalidCredentials. A second login before logout yields
// store.ErrAlreadyLoggedIn; the state-changing write runs only after
// verification succeeds, and its failure surfaces as a storage error, never
// as a credential failure.
func (s *Service) Login(ctx context.Context, kind IdentifierKind, identifier, password string) (model.LoginSuccess, error) {
	var (
		acct *model.Account
		err  error
	)
	switch kind {
	case ByEmail:
		acct, err = s.store.GetAccountByEmail(ctx, identifier)
	case ByUsername:
		acct, err = s.store.GetAccountByUsername(ctx, identifier)
	default:
		return model.LoginSuccess{}, fmt.Errorf("unknown identifier kind %q", kind)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing work as a real verification.
			_, _ = auth.VerifySecret(password, dummyPasswordHash)
			return model.LoginSuccess{}, ErrInvalidCredentials
		}
		return model.LoginSuccess{}, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := auth.VerifySecret(password, acct.PasswordHash)
	if err != nil {
		return model.LoginSuccess{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return model.LoginSuccess{}, ErrInvalidCredentials
	}

	if acct.LoggedIn {
		return model.LoginSuccess{}, store.ErrAlreadyLoggedIn
	}

	// The store guards this update on logged_in=false, so a racing login
	// that got here first turns this into ErrAlreadyLoggedIn.
	if err := s.store.SetLoggedIn(ctx, acct.Username, true); err != nil {
		if errors.Is(err, store.ErrAlreadyLoggedIn) {
			return model.LoginSuccess{}, err
		}
		return model.LoginSuccess{}, fmt.Errorf("mark logged in: %w", err)
	}

	return model.LoginSuccess{Email: acct.Email, Username: acct.Username}, nil
}

// Logout clears the login flag. Yields store.ErrNotFound for an unknown
// account and store.ErrNotLoggedIn when the flag is already clear.
func (s *Service) Logout(ctx context.Context, username string) error {
	err := s.store.SetLoggedIn(ctx, username, false)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotLoggedIn) {
			return err
		}
		return fmt.Errorf("mark logged out: %w", err)
	}
	return nil
}

// GetAccount is a pure lookup; a missing account returns (nil, nil).
func (s *Service) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	acct, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

// DeleteAccount removes the record and returns the deleted snapshot.
func (s *Service) DeleteAccount(ctx context.Context, username string) (*model.Account, error) {
	acct, err := s.store.DeleteAccount(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete account: %w", err)
	}
	return acct, nil
}

// IssueRecoveryCode draws a uniformly random six-digit code and stores it.
// At most one code may be pending per account; a second issuance before the
// first is cleared yields store.ErrRecoveryPending. Delivery of the code is
// out of scope.
func (s *Service) IssueRecoveryCode(ctx context.Context, username string) (*model.Account, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(recoveryCodeSpan))
	if err != nil {
		return nil, fmt.Errorf("generate recovery code: %w", err)
	}
	code := recoveryCodeMin + int(n.Int64())

	acct, err := s.store.SetRecoveryCode(ctx, username, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrRecoveryPending) {
			return nil, err
		}
		return nil, fmt.Errorf("store recovery code: %w", err)
	}
	return acct, nil
}
