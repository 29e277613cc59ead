package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomRateLimiter_Window(t *testing.T) {
	rl := NewRoomRateLimiter(2, 10*time.Second)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("bob"), "limits are per user")

	now = now.Add(11 * time.Second)
	assert.True(t, rl.Allow("alice"))

	rl.Forget("alice")
	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
}

func TestRoomRateLimiter_Disabled(t *testing.T) {
	rl := NewRoomRateLimiter(0, time.Second)
	for range 10 {
		assert.True(t, rl.Allow("alice"))
	}
}
