package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainCredential(t *testing.T) {
	cred, err := NewCredential("  secret  ", "")
	require.NoError(t, err)
	require.Equal(t, "plain", cred.Kind())
	require.True(t, cred.Verify("secret"))
	require.False(t, cred.Verify("Secret"))
	require.False(t, cred.Verify("secret2"))
	require.False(t, cred.Verify(""))
}

func TestHashedCredential(t *testing.T) {
	encoded, err := HashKey("s3cret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "argon2id$v=19$"))

	cred, err := NewCredential("", encoded)
	require.NoError(t, err)
	require.Equal(t, "argon2id", cred.Kind())
	require.False(t, cred.Verify("wrong"))
	require.True(t, cred.Verify("s3cret"))
	require.NotNil(t, cred.verified.Load())
	require.True(t, cred.Verify("s3cret"))
	require.False(t, cred.Verify("wrong"))
}

func TestNewCredentialErrors(t *testing.T) {
	_, err := NewCredential("", "")
	require.Error(t, err)

	_, err = NewCredential("", "bcrypt$nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "auth.api_key_hash")

	_, err = NewCredential("", "argon2id$v=19$m=0,t=0,p=0$c2FsdA$aGFzaA")
	require.Error(t, err)
}

func TestPlainKeyWinsOverHash(t *testing.T) {
	cred, err := NewCredential("plain", "not-even-a-hash")
	require.NoError(t, err)
	require.Equal(t, "plain", cred.Kind())
}

func TestVerifyKey(t *testing.T) {
	encoded, err := HashKey("abc")
	require.NoError(t, err)

	ok, err := VerifyKey("abc", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyKey("abd", encoded)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = VerifyKey("", encoded)
	require.Error(t, err)
	_, err = HashKey("")
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer abc", token: "abc", ok: true},
		{header: "BEARER   abc  ", token: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer", ok: false},
		{header: "Bearer    ", ok: false},
		{header: "", ok: false},
		{header: "abc", ok: false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		require.Equal(t, tc.ok, ok, tc.header)
		require.Equal(t, tc.token, token, tc.header)
	}
}

func TestGenerateAPIKey(t *testing.T) {
	first, err := GenerateAPIKey()
	require.NoError(t, err)
	second, err := GenerateAPIKey()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first, "sk-emb-"))
	require.Len(t, first, len("sk-emb-")+apiKeySecretLength)
	require.NotEqual(t, first, second)
}
