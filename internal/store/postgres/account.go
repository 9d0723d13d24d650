package postgres

import (
	"context"
	"errors"
	"fmt"

	"authd/internal/model"
	"authd/internal/store"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id::text, email, username, password_hash, logged_in, recovery_code, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Username,
		&a.PasswordHash,
		&a.LoggedIn,
		&a.RecoveryCode,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) (model.Account, error) {
	out, err := scanAccount(s.pool.QueryRow(ctx, `
		insert into public.accounts (email, username, password_hash, logged_in)
		values ($1, $2, $3, $4)
		returning `+accountColumns+`
	`, a.Email, a.Username, a.PasswordHash, a.LoggedIn))
	if err != nil {
		return model.Account{}, mapPgErr(err)
	}
	return *out, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountColumns+`
		from public.accounts
		where email = $1
	`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountColumns+`
		from public.accounts
		where username = $1
	`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// SetLoggedIn is a single conditional update; the guard on the current flag
// closes the check-then-act race between login verification and the write.
func (s *Store) SetLoggedIn(ctx context.Context, username string, loggedIn bool) error {
	tag, err := s.pool.Exec(ctx, `
		update public.accounts
		set logged_in = $2, updated_at = now()
		where username = $1
		  and logged_in = not $2
	`, username, loggedIn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row updated: either the account is absent or the flag already
	// matched. Disambiguate with a read.
	exists, err := s.accountExists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	if loggedIn {
		return store.ErrAlreadyLoggedIn
	}
	return store.ErrNotLoggedIn
}

func (s *Store) SetRecoveryCode(ctx context.Context, username string, code int) (*model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		update public.accounts
		set recovery_code = $2, updated_at = now()
		where username = $1
		  and recovery_code is null
		returning `+accountColumns+`
	`, username, code))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	exists, err := s.accountExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrRecoveryPending
}

func (s *Store) ClearRecoveryCode(ctx context.Context, username string) error {
	tag, err := s.pool.Exec(ctx, `
		update public.accounts
		set recovery_code = null, updated_at = now()
		where username = $1
	`, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, username string) (*model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		delete from public.accounts
		where username = $1
		returning `+accountColumns+`
	`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) accountExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		select exists (select 1 from public.accounts where username = $1)
	`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe account: %w", err)
	}
	return exists, nil
}
