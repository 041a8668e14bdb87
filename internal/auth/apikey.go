package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	apiKeySecretLength = 48
	apiKeyPrefix       = "sk-emb-"
	alphabet           = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateAPIKey returns a new random bearer credential.
func GenerateAPIKey() (string, error) {
	secret, err := randomString(apiKeySecretLength)
	if err != nil {
		return "", err
	}
	return apiKeyPrefix + secret, nil
}

func randomString(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
