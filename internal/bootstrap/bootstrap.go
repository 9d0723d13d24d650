// Package bootstrap handles the one-time interactive startup flow: loading
// or prompting for service settings and verifying the operator's root
// password before the server accepts traffic.
package bootstrap

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"authd/internal/auth"
)

type DatabaseType string

const (
	DatabaseRemote DatabaseType = "remote"
	DatabaseLocal  DatabaseType = "local"
)

// Settings is the durable service configuration. RootPasswordHash and
// APIKeyHash are argon2id PHC strings; the plaintext values are hashed the
// moment they are entered and never persisted.
type Settings struct {
	RootUser         string       `json:"root_user,omitempty"`
	RootPasswordHash string       `json:"root_password,omitempty"`
	APIKeyHash       string       `json:"api_key,omitempty"`
	DatabaseType     DatabaseType `json:"database_type,omitempty"`
	DatabaseEndpoint string       `json:"database_endpoint,omitempty"`
}

// ErrVerificationFailed is returned after three consecutive failed root
// password attempts. The caller is expected to exit non-zero; the fatal
// path is deliberate for a local operator-trust bootstrap.
var ErrVerificationFailed = errors.New("root password verification failed")

const maxVerifyAttempts = 3

// Test seams, following the usual pattern for terminal input.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout

	readPassword = func() (string, error) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(stdout)
		return string(b), err
	}
)

// LoadOrPrompt reads the settings file at path if it exists, prompts for
// every missing field, and persists the merged settings back before
// returning. Secrets are hashed immediately on entry.
func LoadOrPrompt(path string) (Settings, error) {
	var s Settings
	existed := false

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		existed = true
		if err := json.Unmarshal(raw, &s); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// First run, prompt for everything below.
	default:
		return Settings{}, fmt.Errorf("read %s: %w", path, err)
	}

	if !s.missingAny() {
		return s, nil
	}

	if existed {
		fmt.Fprintf(stdout, "Some fields are missing in %s. Let's fill them in.\n", path)
	} else {
		fmt.Fprintln(stdout, "Settings do not exist, please answer the following prompts to start.")
	}

	in := bufio.NewReader(stdin)

	if s.RootUser == "" {
		s.RootUser, err = promptLine(in, "Set a root username: ")
		if err != nil {
			return Settings{}, err
		}
	}
	if s.RootPasswordHash == "" {
		s.RootPasswordHash, err = promptSecretHash("Set a root password: ")
		if err != nil {
			return Settings{}, err
		}
	}
	if s.APIKeyHash == "" {
		s.APIKeyHash, err = promptSecretHash("Set an API key: ")
		if err != nil {
			return Settings{}, err
		}
	}
	if s.DatabaseType == "" {
		v, err := promptLine(in, "Set database type (remote/local): ")
		if err != nil {
			return Settings{}, err
		}
		switch DatabaseType(v) {
		case DatabaseRemote, DatabaseLocal:
			s.DatabaseType = DatabaseType(v)
		}
	}
	if s.DatabaseEndpoint == "" {
		s.DatabaseEndpoint, err = promptLine(in, "Set the database endpoint: ")
		if err != nil {
			return Settings{}, err
		}
	}

	if err := save(s, path); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// VerifyOperator prompts for the root password up to three times, verifying
// each attempt against the stored hash. It returns the verified plaintext,
// needed once to authenticate to the storage engine. A malformed stored
// hash or three failed attempts end the bootstrap.
func VerifyOperator(s Settings) (string, error) {
	for attempt := maxVerifyAttempts - 1; attempt >= 0; attempt-- {
		fmt.Fprint(stdout, "Enter root password for verification: ")
		entered, err := readPassword()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}

		ok, err := auth.VerifySecret(entered, s.RootPasswordHash)
		if err != nil {
			return "", err
		}
		if ok {
			fmt.Fprintln(stdout, "Password verified.")
			return entered, nil
		}
		fmt.Fprintf(stdout, "Password verification failed. %d attempts remaining.\n", attempt)
	}
	return "", ErrVerificationFailed
}

func (s Settings) missingAny() bool {
	return s.RootUser == "" ||
		s.RootPasswordHash == "" ||
		s.APIKeyHash == "" ||
		s.DatabaseType == "" ||
		s.DatabaseEndpoint == ""
}

func promptLine(in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(stdout, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptSecretHash(prompt string) (string, error) {
	fmt.Fprint(stdout, prompt)
	secret, err := readPassword()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return auth.HashSecret(secret)
}

func save(s Settings, path string) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
