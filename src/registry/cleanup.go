package registry

import (
	"sync"

	"tradewatch/src/logger"
)

// -----------------------------------------------------------------------------
// Session cleanup registry
// -----------------------------------------------------------------------------
// Every feature's subscription-creation path registers a callback that
// cancels its own subscription, so session teardown stays feature-agnostic:
// the transport only has to call OnDisconnect with the session id.

type CleanupRegistry struct {
	Logger    *logger.Logger
	mu        sync.Mutex
	callbacks map[string][]func()
}

// -----------------------------------------------------------------------------

func NewCleanupRegistry(log *logger.Logger) *CleanupRegistry {
	return &CleanupRegistry{
		Logger:    log,
		callbacks: make(map[string][]func()),
	}
}

// -----------------------------------------------------------------------------

// Register appends a cleanup callback to the session's set.
func (c *CleanupRegistry) Register(sessionID string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[sessionID] = append(c.callbacks[sessionID], fn)
}

// -----------------------------------------------------------------------------

// OnDisconnect removes and runs every callback registered for the session.
// Each callback's failure is isolated: a panic in one is recovered and
// logged so the others still run. Calling it for a session with no
// callbacks is a no-op.
func (c *CleanupRegistry) OnDisconnect(sessionID string) {
	c.mu.Lock()
	fns := c.callbacks[sessionID]
	delete(c.callbacks, sessionID)
	c.mu.Unlock()

	for _, fn := range fns {
		c.run(sessionID, fn)
	}
}

// -----------------------------------------------------------------------------

func (c *CleanupRegistry) run(sessionID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("cleanup callback for session %s panicked: %v", sessionID, r)
		}
	}()
	fn()
}

// -----------------------------------------------------------------------------

// PendingFor returns the number of callbacks registered for the session.
func (c *CleanupRegistry) PendingFor(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.callbacks[sessionID])
}
