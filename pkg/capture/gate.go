package capture

import "sync"

// Gate derives the camera permission state from acquisition outcomes.
// It starts Unknown and flips to Granted or Denied as attempts
// complete; it never changes on its own. A Denied gate stays denied
// until a later attempt succeeds.
type Gate struct {
	mu     sync.RWMutex
	state  State
	facing Facing
}

// NewGate creates a gate in the Unknown state.
func NewGate() *Gate {
	return &Gate{state: StateUnknown}
}

// Observe records the outcome of an acquisition attempt for facing. A
// nil err means the stream opened.
func (g *Gate) Observe(facing Facing, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.facing = facing
	if err != nil {
		g.state = StateDenied
		return
	}
	g.state = StateGranted
}

// State returns the current state and the facing of the last attempt.
// The facing is the zero value until the first attempt completes.
func (g *Gate) State() (State, Facing) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state, g.facing
}

// Allowed reports whether the pipeline may run inference ticks.
func (g *Gate) Allowed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == StateGranted
}
