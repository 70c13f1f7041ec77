// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// PasswordParams are the argon2id costs a hash is written with. They are
// encoded into the PHC string, so old hashes stay verifiable after the
// defaults change.
type PasswordParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

var DefaultPasswordParams = PasswordParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

func HashPassword(password string) (string, error) {
	return DefaultPasswordParams.Hash(password)
}

func (p PasswordParams) Hash(password string) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, err
	}

	return h.matches(password), nil
}

var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("fortune-api/dummy")
	if err != nil {
		panic(fmt.Sprintf("security: build dummy hash: %v", err))
	}
	return h
})

// CheckPassword verifies password against encoded and returns a
// replacement hash when encoded was written with outdated costs. An empty
// encoded still costs one full derivation and never matches, so callers can
// use it for unknown accounts.
func CheckPassword(password, encoded string) (bool, string, error) {
	if encoded == "" {
		_, _ = VerifyPassword(password, dummyHash())
		return false, "", nil
	}

	h, err := parseHash(encoded)
	if err != nil {
		return false, "", err
	}

	if !h.matches(password) {
		return false, "", nil
	}

	if h.params == DefaultPasswordParams {
		return true, "", nil
	}

	upgraded, err := HashPassword(password)
	if err != nil {
		//nolint:nilerr // the password matched; a failed upgrade only delays rehashing
		return true, "", nil
	}
	return true, upgraded, nil
}

type parsedHash struct {
	params PasswordParams
	salt   []byte
	key    []byte
}

func (h parsedHash) matches(password string) bool {
	other := argon2.IDKey(
		[]byte(password),
		h.salt,
		h.params.Time,
		h.params.Memory,
		h.params.Threads,
		h.params.KeyLen,
	)
	return subtle.ConstantTimeCompare(h.key, other) == 1
}

// parseHash reads "$argon2id$v=19$m=..,t=..,p=..$salt$key".
func parseHash(encoded string) (parsedHash, error) {
	var h parsedHash

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return h, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	_, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d",
		&h.params.Memory, &h.params.Time, &h.params.Threads)
	if err != nil {
		return h, fmt.Errorf("%w: params: %w", ErrMalformedHash, err)
	}

	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return h, fmt.Errorf("%w: salt: %w", ErrMalformedHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return h, fmt.Errorf("%w: key: %w", ErrMalformedHash, err)
	}

	//nolint:gosec // G115: argon2 keys are a few dozen bytes
	h.params.KeyLen = uint32(len(h.key))
	h.params.SaltLen = len(h.salt)

	return h, nil
}
