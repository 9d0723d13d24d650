package postgres

import (
	"context"
	"os"
	"testing"

	"authd/internal/model"
	"authd/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a PostgreSQL store against DATABASE_URL, resetting
// the schema first. Tests are skipped when DATABASE_URL is not set.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping PostgreSQL tests")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(), `
		drop table if exists public.accounts;

		create extension if not exists pgcrypto;

		create table public.accounts (
			id uuid primary key default gen_random_uuid(),
			email text not null unique,
			username text not null unique,
			password_hash text not null,
			logged_in boolean not null default false,
			recovery_code integer null,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		);
	`)
	require.NoError(t, err)
	pool.Close()

	st, err := NewStore(databaseURL)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPostgresCreateAccount(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, err := s.CreateAccount(ctx, model.Account{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$argon2id$fake",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.LoggedIn)
	assert.Nil(t, created.RecoveryCode)

	// Unique violations map to the field-specific sentinels.
	_, err = s.CreateAccount(ctx, model.Account{
		Email:        "a@x.com",
		Username:     "bob",
		PasswordHash: "$argon2id$fake",
	})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	_, err = s.CreateAccount(ctx, model.Account{
		Email:        "b@x.com",
		Username:     "alice",
		PasswordHash: "$argon2id$fake",
	})
	assert.ErrorIs(t, err, store.ErrDuplicateUsername)
}

func TestPostgresLookups(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, err := s.CreateAccount(ctx, model.Account{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$argon2id$fake",
	})
	require.NoError(t, err)

	byEmail, err := s.GetAccountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byUsername, err := s.GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	_, err = s.GetAccountByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetAccountByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Case-sensitive as stored.
	_, err = s.GetAccountByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresSetLoggedIn(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, model.Account{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$argon2id$fake",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetLoggedIn(ctx, "nobody", true), store.ErrNotFound)
	assert.ErrorIs(t, s.SetLoggedIn(ctx, "alice", false), store.ErrNotLoggedIn)

	require.NoError(t, s.SetLoggedIn(ctx, "alice", true))
	assert.ErrorIs(t, s.SetLoggedIn(ctx, "alice", true), store.ErrAlreadyLoggedIn)

	require.NoError(t, s.SetLoggedIn(ctx, "alice", false))
	acct, err := s.GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, acct.LoggedIn)
}

func TestPostgresRecoveryCode(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, model.Account{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$argon2id$fake",
	})
	require.NoError(t, err)

	_, err = s.SetRecoveryCode(ctx, "nobody", 123456)
	assert.ErrorIs(t, err, store.ErrNotFound)

	acct, err := s.SetRecoveryCode(ctx, "alice", 123456)
	require.NoError(t, err)
	require.NotNil(t, acct.RecoveryCode)
	assert.Equal(t, 123456, *acct.RecoveryCode)

	_, err = s.SetRecoveryCode(ctx, "alice", 654321)
	assert.ErrorIs(t, err, store.ErrRecoveryPending)

	require.NoError(t, s.ClearRecoveryCode(ctx, "alice"))
	acct, err = s.GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, acct.RecoveryCode)

	assert.ErrorIs(t, s.ClearRecoveryCode(ctx, "nobody"), store.ErrNotFound)
}

func TestPostgresDeleteAccount(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, err := s.CreateAccount(ctx, model.Account{
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$argon2id$fake",
	})
	require.NoError(t, err)

	deleted, err := s.DeleteAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "a@x.com", deleted.Email)

	_, err = s.DeleteAccount(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
