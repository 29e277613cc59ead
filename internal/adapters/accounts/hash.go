package accounts

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// DefaultPBKDF2Iterations applies to "pbkdf2:<hash>" entries that carry no
// explicit iteration count.
const DefaultPBKDF2Iterations = 600000

// minDigestLen rejects truncated or empty digests, which would otherwise
// match any password.
const minDigestLen = 16

var ErrUnsupportedHash = errors.New("unsupported password hash")

// IsHash reports whether stored looks like a "method$salt$hex" hash.
func IsHash(stored string) bool {
	method, _, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	return strings.HasPrefix(method, "pbkdf2:") || strings.HasPrefix(method, "scrypt")
}

// CheckHash verifies password against a stored hash of the form
// "pbkdf2:sha256[:iterations]$salt$hex" or "scrypt[:n:r:p]$salt$hex".
func CheckHash(stored, password string) (bool, error) {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return false, fmt.Errorf("%w: malformed", ErrUnsupportedHash)
	}
	method, salt, want := parts[0], parts[1], parts[2]
	wantRaw, err := hex.DecodeString(want)
	if err != nil {
		return false, fmt.Errorf("%w: bad hex: %v", ErrUnsupportedHash, err)
	}
	if len(wantRaw) < minDigestLen {
		return false, fmt.Errorf("%w: digest is %d bytes", ErrUnsupportedHash, len(wantRaw))
	}

	got, err := derive(method, []byte(salt), []byte(password), len(wantRaw))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, wantRaw) == 1, nil
}

func derive(method string, salt, password []byte, keyLen int) ([]byte, error) {
	fields := strings.Split(method, ":")
	switch fields[0] {
	case "pbkdf2":
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, method)
		}
		var h func() hash.Hash
		switch fields[1] {
		case "sha256":
			h = sha256.New
		case "sha512":
			h = sha512.New
		default:
			return nil, fmt.Errorf("%w: digest %s", ErrUnsupportedHash, fields[1])
		}
		iter := DefaultPBKDF2Iterations
		if len(fields) == 3 {
			n, err := strconv.Atoi(fields[2])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: iterations %q", ErrUnsupportedHash, fields[2])
			}
			iter = n
		}
		return pbkdf2.Key(password, salt, iter, keyLen, h), nil
	case "scrypt":
		n, r, p := 1<<15, 8, 1
		if len(fields) == 4 {
			vals := make([]int, 3)
			for i, f := range fields[1:] {
				v, err := strconv.Atoi(f)
				if err != nil || v <= 0 {
					return nil, fmt.Errorf("%w: scrypt param %q", ErrUnsupportedHash, f)
				}
				vals[i] = v
			}
			n, r, p = vals[0], vals[1], vals[2]
		} else if len(fields) != 1 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, method)
		}
		return scrypt.Key(password, salt, n, r, p, keyLen)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, method)
	}
}
