package alert

import (
	"sync"
	"sync/atomic"
)

// DefaultThreshold is how many detections must be seen before the alert may fire.
const DefaultThreshold = 3

// State is the externally visible phase of a Gate.
type State int

const (
	Idle State = iota
	Accumulating
	Fired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Gate decides when a session's single alert is sent. The tally counts every
// detection regardless of label and is never reset; once fired the gate stays fired.
// A fresh Gate is created for every session.
type Gate struct {
	threshold int
	enabled   atomic.Bool

	mu    sync.Mutex
	tally int
	fired bool
}

// NewGate returns an Idle gate. A non-positive threshold uses DefaultThreshold.
func NewGate(threshold int, enabled bool) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	g := &Gate{threshold: threshold}
	g.enabled.Store(enabled)
	return g
}

// Observe counts one detection and reports whether this detection must trigger the alert.
// It returns true at most once over the life of the gate.
func (g *Gate) Observe(label string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tally++
	if g.fired || g.tally <= g.threshold || !g.enabled.Load() {
		return false
	}
	g.fired = true
	return true
}

// SetEnabled may be called from any goroutine. It has no effect on a fired gate.
func (g *Gate) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

func (g *Gate) Tally() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tally
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.fired:
		return Fired
	case g.tally > 0:
		return Accumulating
	default:
		return Idle
	}
}
