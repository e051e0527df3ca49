package util

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned when an encoded password hash cannot be parsed.
var ErrMalformedHash = errors.New("malformed argon2id hash")

const argon2idSaltLen = 16

type Argon2idParams struct {
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

// DefaultArgon2idParams follows the OWASP password storage baseline for
// argon2id (m=64 MiB, t=3, p=4).
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        3,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// ValidateArgon2idParams rejects parameter sets that argon2 cannot run with.
func ValidateArgon2idParams(p Argon2idParams) error {
	switch {
	case p.Time == 0:
		return fmt.Errorf("argon2id time must be at least 1")
	case p.Parallelism == 0:
		return fmt.Errorf("argon2id parallelism must be at least 1")
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return fmt.Errorf("argon2id memory must be at least %d KiB", 8*uint32(p.Parallelism))
	case p.KeyLen < 16:
		return fmt.Errorf("argon2id key length must be at least 16 bytes")
	}
	return nil
}

func DeriveArgon2idKey(passphrase string, salt []byte, params Argon2idParams) ([]byte, error) {
	if err := ValidateArgon2idParams(params); err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	return key, nil
}

// HashPassword derives an argon2id key from the NFKD-normalized password
// under a fresh random salt and returns it in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
func HashPassword(password string, params Argon2idParams) (string, error) {
	return HashPasswordBytes([]byte(password), params)
}

// HashPasswordBytes is like HashPassword but takes the password as bytes,
// so callers holding it in locked memory need not copy it into a string.
// The caller keeps ownership of password.
func HashPasswordBytes(password []byte, params Argon2idParams) (string, error) {
	if err := ValidateArgon2idParams(params); err != nil {
		return "", err
	}
	salt, err := RandomBytes(argon2idSaltLen)
	if err != nil {
		return "", err
	}
	normalized := NormalizeBytes(password)
	defer WipeBytes(normalized)
	key := argon2.IDKey(normalized, salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	defer WipeBytes(key)

	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.MemoryKiB, params.Time, params.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the PHC-encoded hash.
// The comparison is constant-time.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, expected, err := decodeArgon2idHash(encoded)
	if err != nil {
		return false, err
	}
	key, err := DeriveArgon2idKey(Normalize(password), salt, params)
	if err != nil {
		return false, err
	}
	defer WipeBytes(key)
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func decodeArgon2idHash(encoded string) (Argon2idParams, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Time, &params.Parallelism); err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[4])
	if err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := enc.DecodeString(parts[5])
	if err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}
	params.KeyLen = uint32(len(key))
	if err := ValidateArgon2idParams(params); err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return params, salt, key, nil
}
