package app

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Directory maps usernames to live sessions. It is the single source of
// truth for presence.
type Directory struct {
	mu       sync.RWMutex
	sessions map[domain.Username]*core.Session
}

func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[domain.Username]*core.Session),
	}
}

// Register adds s under its username. A second login for an online user is
// rejected with ErrDuplicateUser; the existing session is left untouched.
func (d *Directory) Register(s *core.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	name := s.Name()
	if _, ok := d.sessions[name]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateUser, name)
	}
	d.sessions[name] = s
	log.Info().Str("module", "app.directory").Str("user", string(name)).Str("sid", string(s.ID)).Msg("registered session")
	return nil
}

func (d *Directory) Lookup(name domain.Username) (*core.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.sessions[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
}

func (d *Directory) Remove(name domain.Username) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, name)
	log.Info().Str("module", "app.directory").Str("user", string(name)).Msg("removed session")
}

// RemoveSession removes the entry only if it still belongs to s.
func (d *Directory) RemoveSession(s *core.Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, ok := d.sessions[s.Name()]
	if !ok || cur != s {
		return false
	}
	delete(d.sessions, s.Name())
	log.Info().Str("module", "app.directory").Str("user", string(s.Name())).Str("sid", string(s.ID)).Msg("removed session")
	return true
}

// List returns a sorted snapshot of online usernames.
func (d *Directory) List() []domain.Username {
	d.mu.RLock()
	out := make([]domain.Username, 0, len(d.sessions))
	for name := range d.sessions {
		out = append(out, name)
	}
	d.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Others returns every session except the one named except.
func (d *Directory) Others(except domain.Username) []*core.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*core.Session, 0, len(d.sessions))
	for name, s := range d.sessions {
		if name != except {
			out = append(out, s)
		}
	}
	return out
}

// Resolve maps usernames to live sessions, skipping the ones that went offline.
func (d *Directory) Resolve(names []domain.Username) []*core.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*core.Session, 0, len(names))
	for _, name := range names {
		if s, ok := d.sessions[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
