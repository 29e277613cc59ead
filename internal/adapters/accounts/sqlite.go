package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Store reads accounts from the users(username, password) table of a SQLite
// database shared with the account management application.
type Store struct {
	pool *sqlitex.Pool
	path string
}

var _ Directory = (*Store)(nil)

// OpenStore opens path read-only. The database and table must already exist.
func OpenStore(path string, poolSize int) (*Store, error) {
	if path == "" {
		return nil, errors.New("accounts: database path is required")
	}
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		Flags:       sqlite.OpenReadOnly | sqlite.OpenURI,
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("accounts: opening %s: %w", path, err)
	}
	log.Info().Str("module", "accounts").Str("path", path).Int("pool_size", poolSize).Msg("account store opened")
	return &Store{pool: pool, path: path}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA query_only=ON",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("accounts: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Exists(ctx context.Context, user domain.Username) (bool, error) {
	_, found, err := s.password(ctx, user)
	return found, err
}

func (s *Store) Verify(ctx context.Context, user domain.Username, password string) (bool, error) {
	stored, found, err := s.password(ctx, user)
	if err != nil || !found {
		return false, err
	}
	ok, err := CheckHash(stored, password)
	if err != nil {
		log.Warn().Err(err).Str("module", "accounts").Str("user", string(user)).Msg("stored hash rejected")
		return false, nil
	}
	return ok, nil
}

func (s *Store) password(ctx context.Context, user domain.Username) (string, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("accounts: take: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		stored string
		found  bool
	)
	err = sqlitex.Execute(conn,
		"SELECT password FROM users WHERE username = ? LIMIT 1",
		&sqlitex.ExecOptions{
			Args: []any{string(user)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stored = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("accounts: lookup %s: %w", user, err)
	}
	return stored, found, nil
}
