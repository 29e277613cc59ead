package accounts

import (
	"context"
	"crypto/subtle"

	"github.com/dkeye/Relay/internal/domain"
)

// Static is an in-memory account table loaded from configuration. Values
// are either password hashes (see CheckHash) or plain passwords.
type Static map[domain.Username]string

var _ Directory = Static(nil)

func NewStatic(users map[string]string) Static {
	s := make(Static, len(users))
	for name, pass := range users {
		s[domain.Username(name)] = pass
	}
	return s
}

func (s Static) Exists(_ context.Context, user domain.Username) (bool, error) {
	_, ok := s[user]
	return ok, nil
}

func (s Static) Verify(_ context.Context, user domain.Username, password string) (bool, error) {
	stored, ok := s[user]
	if !ok {
		return false, nil
	}
	if IsHash(stored) {
		return CheckHash(stored, password)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1, nil
}
