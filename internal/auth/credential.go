package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// Credential is the single static secret guarding the API. It is immutable
// after construction apart from the verified-token cache used in hash mode.
type Credential struct {
	plain []byte
	hash  *keyHash

	// sha256 of the last token that passed the argon2 check.
	verified atomic.Pointer[[sha256.Size]byte]
}

// NewCredential builds a credential from a plain key or an argon2id hash.
// The plain key wins when both are set.
func NewCredential(apiKey, apiKeyHash string) (*Credential, error) {
	apiKey = strings.TrimSpace(apiKey)
	apiKeyHash = strings.TrimSpace(apiKeyHash)
	switch {
	case apiKey != "":
		return &Credential{plain: []byte(apiKey)}, nil
	case apiKeyHash != "":
		parsed, err := parseKeyHash(apiKeyHash)
		if err != nil {
			return nil, fmt.Errorf("auth.api_key_hash: %w", err)
		}
		return &Credential{hash: &parsed}, nil
	default:
		return nil, errors.New("auth: api key or api key hash required")
	}
}

// Kind reports "plain" or "argon2id".
func (c *Credential) Kind() string {
	if c.hash != nil {
		return "argon2id"
	}
	return "plain"
}

// Verify reports whether token equals the configured secret exactly.
func (c *Credential) Verify(token string) bool {
	if token == "" {
		return false
	}
	if c.hash == nil {
		return subtle.ConstantTimeCompare([]byte(token), c.plain) == 1
	}

	digest := sha256.Sum256([]byte(token))
	if cached := c.verified.Load(); cached != nil && subtle.ConstantTimeCompare(cached[:], digest[:]) == 1 {
		return true
	}
	if !c.hash.matches(token) {
		return false
	}
	c.verified.Store(&digest)
	return true
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is case-insensitive; anything else yields ok=false.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
