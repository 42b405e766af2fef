package session

import (
	"sync"

	"github.com/capsule-dev/capsule/internal/logging"
)

// Teardown is an ordered registry of release actions. Resources register a
// release before the next phase executes; Drain runs the releases in reverse
// acquisition order exactly once, regardless of which phase failed.
//
// Releases are best-effort: their failures are logged and never raised.
type Teardown struct {
	mu      sync.Mutex
	actions []teardownAction
	drained bool
}

type teardownAction struct {
	name string
	fn   func() error
}

// NewTeardown creates an empty registry.
func NewTeardown() *Teardown {
	return &Teardown{}
}

// Register adds a release action. Registering after Drain is a programming
// error and the action is run immediately so the resource is not leaked.
func (t *Teardown) Register(name string, fn func() error) {
	t.mu.Lock()
	if t.drained {
		t.mu.Unlock()
		logging.Warn("teardown action registered after drain, running immediately", "action", name)
		runAction(teardownAction{name: name, fn: fn})
		return
	}
	t.actions = append(t.actions, teardownAction{name: name, fn: fn})
	t.mu.Unlock()
}

// Drain runs all registered actions in reverse order. Subsequent calls are
// no-ops, so it is safe both deferred and called explicitly.
func (t *Teardown) Drain() {
	t.mu.Lock()
	if t.drained {
		t.mu.Unlock()
		return
	}
	t.drained = true
	actions := t.actions
	t.actions = nil
	t.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		runAction(actions[i])
	}
}

func runAction(a teardownAction) {
	logging.Debug("teardown", "action", a.name)
	if err := a.fn(); err != nil {
		logging.Warn("teardown action failed", "action", a.name, "error", err)
	}
}
