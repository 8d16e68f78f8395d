// AngelaMos | 2026
// security_test.go

package core

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Verifies(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, rehash, err := VerifyPasswordWithRehash("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, rehash)

	ok, _, err = VerifyPasswordWithRehash("wrong horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_RehashesOldParams(t *testing.T) {
	old := argonParams{memory: 32 * 1024, time: 1, threads: 2, keyLen: 32}
	salt := []byte("0123456789abcdef")
	encoded := old.encode(salt, old.derive("secret", salt))

	ok, rehash, err := VerifyPasswordWithRehash("secret", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotEmpty(t, rehash)

	parsed, err := parseHash(rehash)
	require.NoError(t, err)
	assert.Equal(t, currentParams, parsed.params)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	key := base64.RawStdEncoding.EncodeToString([]byte("k"))
	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$" + key + "$" + key,
		"$argon2id$v=1$m=1,t=1,p=1$" + key + "$" + key,
		"$argon2id$v=19$m=1,t=1,p=1$!!$" + key,
	} {
		_, _, err := VerifyPasswordWithRehash("x", encoded)
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}

func TestVerifyPasswordTimingSafe_MissingHash(t *testing.T) {
	ok, _, err := VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	empty := ""
	ok, _, err = VerifyPasswordTimingSafe("anything", &empty)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenHash(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)

	hash := HashToken(token)
	assert.Len(t, hash, 64)
	assert.True(t, CompareTokenHash(token, hash))
	assert.False(t, CompareTokenHash(token+"x", hash))
}
