// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// argonParams describes one argon2id encoding. Hashes written under older
// parameters still verify and are flagged for rehash.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var currentParams = argonParams{
	memory:  64 * 1024,
	time:    1,
	threads: 4,
	keyLen:  32,
}

const saltLength = 16

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

func (p argonParams) encode(salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

type parsedHash struct {
	params argonParams
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (*parsedHash, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	var out parsedHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d",
		&out.params.memory, &out.params.time, &out.params.threads,
	); err != nil {
		return nil, fmt.Errorf("%w: params %q", ErrMalformedHash, fields[3])
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	//nolint:gosec // G115: argon2 keys are a few dozen bytes
	out.params.keyLen = uint32(len(out.key))
	return &out, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

func HashPassword(password string) (string, error) {
	salt, err := randomBytes(saltLength)
	if err != nil {
		return "", err
	}
	return currentParams.encode(salt, currentParams.derive(password, salt)), nil
}

// VerifyPasswordWithRehash checks password against encoded. When it matches
// and encoded predates currentParams, a fresh hash is returned alongside.
func VerifyPasswordWithRehash(password, encoded string) (bool, string, error) {
	parsed, err := parseHash(encoded)
	if err != nil {
		return false, "", err
	}

	candidate := parsed.params.derive(password, parsed.salt)
	if subtle.ConstantTimeCompare(candidate, parsed.key) != 1 {
		return false, "", nil
	}

	if parsed.params == currentParams {
		return true, "", nil
	}

	rehashed, err := HashPassword(password)
	if err != nil {
		//nolint:nilerr // the password matched; the upgrade can wait
		return true, "", nil
	}
	return true, rehashed, nil
}

var placeholderHash = sync.OnceValue(func() string {
	hash, err := HashPassword("placeholder")
	if err != nil {
		panic(fmt.Sprintf("security: placeholder hash: %v", err))
	}
	return hash
})

// VerifyPasswordTimingSafe spends the same argon2 work whether or not the
// account exists. A nil or empty hash always fails.
func VerifyPasswordTimingSafe(password string, encoded *string) (bool, string, error) {
	if encoded == nil || *encoded == "" {
		//nolint:errcheck // result discarded, only the work matters
		_, _, _ = VerifyPasswordWithRehash(password, placeholderHash())
		return false, "", nil
	}
	return VerifyPasswordWithRehash(password, *encoded)
}

func GenerateRefreshToken() (string, error) {
	b, err := randomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func CompareTokenHash(token, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}
