package models

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------
// A subscription is a client's live registration for push updates on one
// feed. Each variant shares the same identity block (id, user, session,
// destination) and carries its own mutable poll-state, guarded by a
// per-record mutex: polls for different subscriptions never share a record,
// but a cancel racing an in-flight poll on the same record must not corrupt
// the snapshot.

// MSubscriptionBase is the identity block common to every feed kind.
type MSubscriptionBase struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
}

// Key returns the registry map key.
func (b *MSubscriptionBase) Key() string { return b.ID }

// Session returns the owning connection's session id.
func (b *MSubscriptionBase) Session() string { return b.SessionID }

// Owner returns the owning user's id.
func (b *MSubscriptionBase) Owner() string { return b.UserID }

// -----------------------------------------------------------------------------
// Stock candle subscription
// -----------------------------------------------------------------------------

// MStockSubscription streams candle updates for one (platform, symbol,
// timeframe) key. LastSent tracks the newest candle revision pushed to the
// client and drives change detection.
type MStockSubscription struct {
	MSubscriptionBase
	Platform  string     `json:"platform"`
	Symbol    string     `json:"symbol"`
	Timeframe MTimeframe `json:"timeframe"`

	mu       sync.Mutex
	lastSent *MCandle
}

// LastSent returns a copy of the last pushed candle, or false if nothing
// has been sent yet.
func (s *MStockSubscription) LastSent() (MCandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSent == nil {
		return MCandle{}, false
	}
	return *s.lastSent, true
}

// AdvanceLastSent commits candle as the newest revision the client has
// seen. The snapshot never moves backwards in time.
func (s *MStockSubscription) AdvanceLastSent(candle MCandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSent != nil && candle.Timestamp < s.lastSent.Timestamp {
		return
	}
	c := candle
	s.lastSent = &c
}

// -----------------------------------------------------------------------------
// Alert subscription
// -----------------------------------------------------------------------------

// MAlertSubscription watches one persisted alert. The first evaluation runs
// a catch-up scan from the alert's creation; later passes only look at the
// newest minute candle.
type MAlertSubscription struct {
	MSubscriptionBase
	AlertID string `json:"alert_id"`

	mu                    sync.Mutex
	initialCheckCompleted bool
	lastCheckedMinute     time.Time
}

// CheckState returns the catch-up flag and the last minute-bar timestamp
// this subscription has evaluated.
func (s *MAlertSubscription) CheckState() (initialDone bool, lastChecked time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialCheckCompleted, s.lastCheckedMinute
}

// MarkChecked records a completed evaluation up to the given minute bar.
func (s *MAlertSubscription) MarkChecked(minute time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialCheckCompleted = true
	if minute.After(s.lastCheckedMinute) {
		s.lastCheckedMinute = minute
	}
}

// -----------------------------------------------------------------------------
// Automated trade subscription
// -----------------------------------------------------------------------------

// MTradeSubscription watches one persisted automated trade rule. Rules are
// not single-shot; LastTriggered keeps a rule from firing twice on the same
// bar while still allowing a later bar to fire again.
type MTradeSubscription struct {
	MSubscriptionBase
	RuleID string `json:"rule_id"`

	mu            sync.Mutex
	lastTriggered int64 // timestamp of the bar the rule last fired on
}

// AlreadyTriggered reports whether the rule already fired on the bar with
// the given open timestamp.
func (s *MTradeSubscription) AlreadyTriggered(barTimestamp int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTriggered == barTimestamp
}

// MarkTriggered records that the rule fired on the given bar.
func (s *MTradeSubscription) MarkTriggered(barTimestamp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if barTimestamp > s.lastTriggered {
		s.lastTriggered = barTimestamp
	}
}
