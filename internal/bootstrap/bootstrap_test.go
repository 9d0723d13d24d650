package bootstrap

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"authd/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapIO points the prompt seams at buffers for the duration of a test.
// lines feeds the plain prompts, secrets feeds the password prompts in
// order.
func swapIO(t *testing.T, lines string, secrets ...string) {
	t.Helper()

	origIn, origOut, origRead := stdin, stdout, readPassword
	t.Cleanup(func() {
		stdin, stdout, readPassword = origIn, origOut, origRead
	})

	stdin = bytes.NewBufferString(lines)
	stdout = io.Discard

	i := 0
	readPassword = func() (string, error) {
		if i >= len(secrets) {
			return "", errors.New("no more secrets queued")
		}
		s := secrets[i]
		i++
		return s, nil
	}
}

func TestLoadOrPromptFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	// Prompt order: root username, root password, API key, database
	// type, database endpoint.
	swapIO(t, "root\nremote\ndb.example.com:5432\n", "rootpw", "service-key")

	s, err := LoadOrPrompt(path)
	require.NoError(t, err)

	assert.Equal(t, "root", s.RootUser)
	assert.Equal(t, DatabaseRemote, s.DatabaseType)
	assert.Equal(t, "db.example.com:5432", s.DatabaseEndpoint)

	// Secrets were hashed on entry; no plaintext anywhere.
	ok, err := auth.VerifySecret("rootpw", s.RootPasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = auth.VerifySecret("service-key", s.APIKeyHash)
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "rootpw")
	assert.NotContains(t, string(raw), "service-key")

	// A complete settings file loads without touching the prompts.
	swapIO(t, "")
	reloaded, err := LoadOrPrompt(path)
	require.NoError(t, err)
	assert.Equal(t, s, reloaded)
}

func TestLoadOrPromptFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	hash, err := auth.HashSecret("existing-pw")
	require.NoError(t, err)
	raw, err := json.Marshal(Settings{
		RootUser:         "root",
		RootPasswordHash: hash,
		DatabaseType:     DatabaseLocal,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	// Only API key and endpoint are prompted for.
	swapIO(t, "localhost:8000\n", "service-key")

	s, err := LoadOrPrompt(path)
	require.NoError(t, err)
	assert.Equal(t, "root", s.RootUser)
	assert.Equal(t, hash, s.RootPasswordHash)
	assert.Equal(t, DatabaseLocal, s.DatabaseType)
	assert.Equal(t, "localhost:8000", s.DatabaseEndpoint)

	ok, err := auth.VerifySecret("service-key", s.APIKeyHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadOrPromptRejectsUnknownDatabaseType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	swapIO(t, "root\nsomething-else\nlocalhost:8000\n", "pw", "key")

	s, err := LoadOrPrompt(path)
	require.NoError(t, err)
	// Unrecognized type stays unset; the caller falls back to the memory
	// store and the next startup prompts again.
	assert.Empty(t, s.DatabaseType)
}

func TestVerifyOperator(t *testing.T) {
	hash, err := auth.HashSecret("rootpw")
	require.NoError(t, err)
	s := Settings{RootPasswordHash: hash}

	// Succeeds on the third and final attempt, returning the plaintext.
	swapIO(t, "", "bad", "also-bad", "rootpw")
	pw, err := VerifyOperator(s)
	require.NoError(t, err)
	assert.Equal(t, "rootpw", pw)

	// Three failures are fatal.
	swapIO(t, "", "bad", "bad", "bad")
	_, err = VerifyOperator(s)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerifyOperatorMalformedHash(t *testing.T) {
	swapIO(t, "", "anything")
	_, err := VerifyOperator(Settings{RootPasswordHash: "garbage"})
	assert.ErrorIs(t, err, auth.ErrInvalidHash)

	// A hash that parses but carries unusable parameters must surface the
	// same error, not take down the process.
	swapIO(t, "", "anything")
	_, err = VerifyOperator(Settings{
		RootPasswordHash: "$argon2id$v=19$m=65536,t=0,p=4$c2FsdHNhbHQ$aGFzaGhhc2g",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidHash)
}
