package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/domain"
)

// RoomRateLimiter bounds how often one user may join rooms or start calls.
type RoomRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.Username][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		history:  make(map[domain.Username][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RoomRateLimiter) Allow(user domain.Username) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[user]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[user] = fresh
		return false
	}
	rl.history[user] = append(fresh, now)
	return true
}

// Forget drops the history of a user who logged out.
func (rl *RoomRateLimiter) Forget(user domain.Username) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, user)
}
