package app

import (
	"sync"

	"github.com/dkeye/Relay/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a peer whose outbound queue is full.
type Policy interface {
	OnBackPressure(member *core.Session) BackpressureAction
	OnDelivered(member *core.Session)
}

// DropPolicy drops frames for a slow peer and kicks it after MaxDrops
// consecutive drops. MaxDrops <= 0 never kicks.
type DropPolicy struct {
	MaxDrops int

	mu    sync.Mutex
	drops map[core.SessionID]int
}

func NewDropPolicy(maxDrops int) *DropPolicy {
	return &DropPolicy{MaxDrops: maxDrops, drops: make(map[core.SessionID]int)}
}

func (p *DropPolicy) OnBackPressure(member *core.Session) BackpressureAction {
	if p.MaxDrops <= 0 {
		return DropFrame
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drops[member.ID]++
	if p.drops[member.ID] >= p.MaxDrops {
		delete(p.drops, member.ID)
		return KickMember
	}
	return DropFrame
}

func (p *DropPolicy) OnDelivered(member *core.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.drops, member.ID)
}

// Forget clears the counters of a session that went away.
func (p *DropPolicy) Forget(sid core.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.drops, sid)
}
