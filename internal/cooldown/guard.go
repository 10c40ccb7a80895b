// Package cooldown enforces a minimum spacing between an actor's
// consecutive state-changing actions.
package cooldown

import (
	"sync"
	"time"
)

// Verdict is the result of a cooldown check.
type Verdict int

const (
	Allowed Verdict = iota
	Violated
)

func (v Verdict) String() string {
	if v == Violated {
		return "violated"
	}
	return "allowed"
}

// Guard tracks the last allowed action of every actor.
type Guard struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewGuard creates a guard with the given window. A non-positive window
// disables the guard: every check is allowed.
func NewGuard(window time.Duration) *Guard {
	return &Guard{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Window returns the configured cooldown window.
func (g *Guard) Window() time.Duration {
	return g.window
}

// Check reports whether actorID may act at now. An allowed check records now
// as the actor's last action in the same critical section, so two concurrent
// checks for one actor cannot both be allowed. A violated check leaves the
// record untouched.
func (g *Guard) Check(actorID string, now time.Time) Verdict {
	if g.window <= 0 {
		return Allowed
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[actorID]; ok && now.Sub(last) < g.window {
		return Violated
	}
	g.last[actorID] = now
	return Allowed
}

// Forget drops the record for actorID.
func (g *Guard) Forget(actorID string) {
	g.mu.Lock()
	delete(g.last, actorID)
	g.mu.Unlock()
}

// Prune evicts records that can no longer cause a violation at now and
// returns how many were removed.
func (g *Guard) Prune(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for actorID, last := range g.last {
		if now.Sub(last) >= g.window {
			delete(g.last, actorID)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked actors.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.last)
}
