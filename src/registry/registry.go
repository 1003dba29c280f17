package registry

import (
	"sync"

	"tradewatch/src/helpers"
)

// -----------------------------------------------------------------------------
// Generic subscription registry
// -----------------------------------------------------------------------------
// One registry instance exists per feature kind (stock candles, alerts,
// automated trade rules). The three kinds share this implementation; the
// feature-specific record types only have to satisfy Entry.

// Entry is the constraint for anything a Registry can hold.
type Entry interface {
	// Key is the unique registry key (the subscription id).
	Key() string
	// Session is the owning connection's session id.
	Session() string
	// Owner is the owning user's id.
	Owner() string
}

// Registry is a concurrent map from subscription id to record, with a
// secondary index from session id to the subscriptions it owns. Insertion
// and removal are atomic with respect to iteration: a poll pass sees a
// subscription fully or not at all.
type Registry[S Entry] struct {
	mu       sync.RWMutex
	entries  map[string]S
	sessions map[string]map[string]struct{}
}

// -----------------------------------------------------------------------------

func NewRegistry[S Entry]() *Registry[S] {
	return &Registry[S]{
		entries:  make(map[string]S),
		sessions: make(map[string]map[string]struct{}),
	}
}

// -----------------------------------------------------------------------------

// Add inserts the subscription. A duplicate id is a validation error; ids
// are generated, so a collision means a caller bug.
func (r *Registry[S]) Add(entry S) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entry.Key()
	if _, exists := r.entries[id]; exists {
		return helpers.NewValidation("subscription %s already registered", id)
	}

	r.entries[id] = entry

	sess := entry.Session()
	if r.sessions[sess] == nil {
		r.sessions[sess] = make(map[string]struct{})
	}
	r.sessions[sess][id] = struct{}{}
	return nil
}

// -----------------------------------------------------------------------------

// Remove deletes the subscription and returns it. A second Remove for the
// same id surfaces a NotFoundError rather than silently succeeding, so
// callers can detect protocol bugs in their reconnect logic.
func (r *Registry[S]) Remove(id string) (S, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		var zero S
		return zero, helpers.NewNotFound("subscription %s not found", id)
	}

	delete(r.entries, id)

	sess := entry.Session()
	if ids, ok := r.sessions[sess]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.sessions, sess)
		}
	}
	return entry, nil
}

// -----------------------------------------------------------------------------

// Get looks up a subscription by id.
func (r *Registry[S]) Get(id string) (S, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	return entry, ok
}

// -----------------------------------------------------------------------------

// ForEach calls fn for every active subscription over a point-in-time
// snapshot, so poll loops tolerate concurrent insertions and removals
// without double-processing a removed entry. fn runs without the registry
// lock held.
func (r *Registry[S]) ForEach(fn func(entry S)) {
	r.mu.RLock()
	snapshot := make([]S, 0, len(r.entries))
	for _, entry := range r.entries {
		snapshot = append(snapshot, entry)
	}
	r.mu.RUnlock()

	for _, entry := range snapshot {
		fn(entry)
	}
}

// -----------------------------------------------------------------------------

// FindByUser returns all subscriptions owned by the user.
func (r *Registry[S]) FindByUser(userID string) []S {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []S
	for _, entry := range r.entries {
		if entry.Owner() == userID {
			result = append(result, entry)
		}
	}
	return result
}

// -----------------------------------------------------------------------------

// findBySession returns the ids of all subscriptions tied to a session.
func (r *Registry[S]) findBySession(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions[sessionID]))
	for id := range r.sessions[sessionID] {
		ids = append(ids, id)
	}
	return ids
}

// -----------------------------------------------------------------------------

// Len returns the number of active subscriptions.
func (r *Registry[S]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
