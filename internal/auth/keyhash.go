package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 2
	argonKeyLen  = 32
	argonSaltLen = 16
)

type keyHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	sum     []byte
}

// HashKey returns an encoded argon2id hash for the supplied key, suitable for
// auth.api_key_hash.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("key required")
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(key), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", argonMemory, argonTime, argonThreads, b64Salt, b64Hash), nil
}

// VerifyKey compares a key against an encoded hash string.
func VerifyKey(key string, encoded string) (bool, error) {
	if key == "" || encoded == "" {
		return false, errors.New("key and hash required")
	}
	parsed, err := parseKeyHash(encoded)
	if err != nil {
		return false, err
	}
	return parsed.matches(key), nil
}

func parseKeyHash(encoded string) (keyHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return keyHash{}, errors.New("invalid hash format")
	}

	var h keyHash
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return keyHash{}, fmt.Errorf("parse params: %w", err)
	}
	if h.memory == 0 || h.time == 0 || h.threads == 0 {
		return keyHash{}, errors.New("invalid hash params")
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[3]); err != nil {
		return keyHash{}, fmt.Errorf("decode salt: %w", err)
	}
	if h.sum, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return keyHash{}, fmt.Errorf("decode hash: %w", err)
	}
	if len(h.sum) == 0 {
		return keyHash{}, errors.New("empty hash")
	}
	return h, nil
}

func (h keyHash) matches(key string) bool {
	calculated := argon2.IDKey([]byte(key), h.salt, h.time, h.memory, h.threads, uint32(len(h.sum)))
	return subtle.ConstantTimeCompare(calculated, h.sum) == 1
}
