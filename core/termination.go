package session

import (
	"encoding/json"
	"sync"
	"time"
)

// defaultTerminationTimeout bounds how long the client waits for the
// agent's end_conversation result before synthesizing a local summary.
const defaultTerminationTimeout = 10 * time.Second

// resolution is the single outcome of the end-of-session race.
type resolution struct {
	remote  bool
	payload json.RawMessage
}

// terminator owns the race between the agent's end_conversation result
// and the local fallback timer.
//
// Whichever side resolves first disarms the other; the loser is a
// guaranteed no-op because the armed guard is cleared under the mutex
// before the resolve callback runs, not merely checked after the fact.
type terminator struct {
	mu      sync.Mutex
	armed   bool
	timer   *time.Timer
	resolve func(resolution)
}

func newTerminator(resolve func(resolution)) *terminator {
	return &terminator{resolve: resolve}
}

// Arm starts the fallback timer. Arming while already armed keeps the
// original timer.
func (t *terminator) Arm(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.armed {
		return
	}
	t.armed = true
	t.timer = time.AfterFunc(timeout, t.expire)
}

func (t *terminator) expire() {
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return
	}
	t.armed = false
	resolve := t.resolve
	t.mu.Unlock()

	resolve(resolution{remote: false})
}

// ResolveRemote resolves the race with the agent's payload. Reports false
// when the race was not armed or already resolved.
func (t *terminator) ResolveRemote(payload json.RawMessage) bool {
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return false
	}
	t.armed = false
	if t.timer != nil {
		t.timer.Stop()
	}
	resolve := t.resolve
	t.mu.Unlock()

	resolve(resolution{remote: true, payload: payload})
	return true
}

// Disarm cancels a pending race without resolving it. Used on reset and
// abandonment.
func (t *terminator) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.armed = false
}
