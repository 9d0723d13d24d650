package auth

import "errors"

// ErrInvalidKey is returned for any presented key that does not verify
// against the stored hash, including malformed stored hashes.
var ErrInvalidKey = errors.New("api key is invalid")

// Gate verifies the caller-supplied service API key against the hash
// produced at bootstrap. It guards every account-mutating operation; the
// account service itself performs no key checks.
type Gate struct {
	keyHash string
}

func NewGate(keyHash string) *Gate {
	return &Gate{keyHash: keyHash}
}

func (g *Gate) Authorize(presentedKey string) error {
	ok, err := VerifySecret(presentedKey, g.keyHash)
	if err != nil || !ok {
		return ErrInvalidKey
	}
	return nil
}
