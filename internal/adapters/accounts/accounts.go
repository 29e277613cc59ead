// Package accounts answers "does this user exist" and "is this the right
// password" for the login handshake. Accounts are created elsewhere; this
// package never writes them.
package accounts

import (
	"context"

	"github.com/dkeye/Relay/internal/domain"
)

// Directory is the read-only account source consulted during login.
type Directory interface {
	Exists(ctx context.Context, user domain.Username) (bool, error)
	Verify(ctx context.Context, user domain.Username, password string) (bool, error)
}
