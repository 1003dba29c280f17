package server

import (
	"sync"

	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/registry"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------
// The hub is the session lifecycle source and the push transport in one:
// each websocket connection is a session, clients bind destinations with
// subscribe frames, and pushes addressed to a destination reach whichever
// client currently holds the binding. A disconnect hands the session id to
// the cleanup registry, which cancels every subscription the session owns.

type Hub struct {
	Logger  *logger.Logger
	Cleanup *registry.CleanupRegistry

	mu           sync.RWMutex
	clients      map[*Client]struct{}
	destinations map[string]*Client
}

var _ interfaces.IPushTransport = (*Hub)(nil)

// -----------------------------------------------------------------------------

func NewHub(log *logger.Logger, cleanup *registry.CleanupRegistry) *Hub {
	return &Hub{
		Logger:       log,
		Cleanup:      cleanup,
		clients:      make(map[*Client]struct{}),
		destinations: make(map[string]*Client),
	}
}

// -----------------------------------------------------------------------------
// Client lifecycle
// -----------------------------------------------------------------------------

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.Logger.Info("session %s connected", c.sessionID)
}

// -----------------------------------------------------------------------------

// unregisterClient drops the client, releases its destination bindings and
// fires session cleanup exactly once.
func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c]
	if known {
		delete(h.clients, c)
		for dest, owner := range h.destinations {
			if owner == c {
				delete(h.destinations, dest)
			}
		}
		close(c.send)
	}
	h.mu.Unlock()

	if known {
		h.Logger.Info("session %s disconnected, %d subscriptions to clean up",
			c.sessionID, h.Cleanup.PendingFor(c.sessionID))
		h.Cleanup.OnDisconnect(c.sessionID)
	}
}

// -----------------------------------------------------------------------------
// Destination bindings
// -----------------------------------------------------------------------------

// bind points a destination at the client. A rebind steals the
// destination; the last subscriber wins, matching best-effort delivery to
// "the subscriber currently bound".
func (h *Hub) bind(destination string, c *Client) {
	h.mu.Lock()
	h.destinations[destination] = c
	h.mu.Unlock()

	h.Logger.Debug("session %s bound to %s", c.sessionID, destination)
}

// -----------------------------------------------------------------------------

func (h *Hub) unbind(destination string, c *Client) {
	h.mu.Lock()
	if h.destinations[destination] == c {
		delete(h.destinations, destination)
	}
	h.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Push transport
// -----------------------------------------------------------------------------

// Push delivers one message to the client bound to the destination.
// Nobody bound is a normal condition (the client may still be attaching);
// the message is dropped silently. A full client buffer drops the message
// too, so a slow consumer cannot block a poll loop.
//
// The read lock is held across the send: unregisterClient closes the send
// channel under the write lock, so a disconnect can never close the channel
// between the binding lookup and the send. The send itself never blocks.
func (h *Hub) Push(destination string, message models.MUpdateMessage) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.destinations[destination]
	if !ok {
		return nil
	}

	select {
	case client.send <- message:
		return nil
	default:
		h.Logger.Warning("session %s too slow, dropping %s message for %s",
			client.sessionID, message.Kind, destination)
		return nil
	}
}

// -----------------------------------------------------------------------------

// ConnectionCount returns the number of live sessions.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
