package service

import (
	"context"
	"time"

	"tradewatch/src/candles"
	"tradewatch/src/helpers"
	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/notifier"
	"tradewatch/src/registry"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Subscription service
// -----------------------------------------------------------------------------
// Request-path operations for all three feed kinds: validated creation,
// cancellation with ownership checks, and per-user listing. Every creation
// registers a cleanup callback with the session cleanup registry so the
// transport can tear a whole session down without knowing feed kinds.

type SubscriptionService struct {
	Logger     *logger.Logger
	Candles    *candles.Service
	Dispatcher *notifier.Dispatcher
	Cleanup    *registry.CleanupRegistry
	Alerts     interfaces.IAlertRepo
	Rules      interfaces.ITradeRuleRepo

	StockSubs *registry.Registry[*models.MStockSubscription]
	AlertSubs *registry.Registry[*models.MAlertSubscription]
	TradeSubs *registry.Registry[*models.MTradeSubscription]
}

// -----------------------------------------------------------------------------
// Stock candle subscriptions
// -----------------------------------------------------------------------------

// CreateStockParams are the caller-supplied fields for a candle feed
// subscription.
type CreateStockParams struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Destination string `json:"destination"`
	Platform    string `json:"platform"`
	Symbol      string `json:"symbol"`
	Timeframe   string `json:"timeframe"`
}

// CreateStockSubscription validates the parameters, registers the
// subscription and sends the current bar as the INITIAL push. Validation
// fails before any registry mutation.
func (s *SubscriptionService) CreateStockSubscription(ctx context.Context, p CreateStockParams) (string, error) {
	if err := requireFields(map[string]string{
		"user_id":     p.UserID,
		"session_id":  p.SessionID,
		"destination": p.Destination,
		"platform":    p.Platform,
		"symbol":      p.Symbol,
	}); err != nil {
		return "", err
	}

	tf, err := models.ParseTimeframe(p.Timeframe)
	if err != nil {
		return "", helpers.NewValidation("invalid timeframe: %v", err)
	}

	sub := &models.MStockSubscription{
		MSubscriptionBase: newBase(p.UserID, p.SessionID, p.Destination),
		Platform:          p.Platform,
		Symbol:            p.Symbol,
		Timeframe:         tf,
	}

	if err := s.StockSubs.Add(sub); err != nil {
		return "", err
	}
	registerCleanup(s, s.StockSubs, sub.SessionID, sub.ID)

	// Initial send: the current bar, if the store has one. A failed fetch
	// or push is not fatal; the snapshot stays empty so the poll loop
	// re-offers the bar as a late initial instead of dropping it.
	if candle, ok, err := s.Candles.InitialCandle(ctx, sub); err != nil {
		s.Logger.Error("stock subscription %s: initial candle fetch failed: %v", sub.ID, err)
	} else if ok {
		if err := s.Dispatcher.SendInitialCandle(sub, candle); err != nil {
			s.Logger.Error("stock subscription %s: initial push failed: %v", sub.ID, err)
		} else {
			sub.AdvanceLastSent(candle)
		}
	}

	s.Logger.Info("stock subscription %s created (%s %s %s)", sub.ID, sub.Platform, sub.Symbol, sub.Timeframe)
	return sub.ID, nil
}

// CancelStockSubscription removes the subscription. Unknown ids surface
// NotFound; a caller that does not own the subscription gets Unauthorized.
func (s *SubscriptionService) CancelStockSubscription(userID, id string) error {
	return cancelOwned(s.StockSubs, userID, id)
}

// -----------------------------------------------------------------------------
// Alert subscriptions
// -----------------------------------------------------------------------------

// CreateAlertParams subscribe a session to one persisted alert.
type CreateAlertParams struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Destination string `json:"destination"`
	AlertID     string `json:"alert_id"`
}

func (s *SubscriptionService) CreateAlertSubscription(ctx context.Context, p CreateAlertParams) (string, error) {
	if err := requireFields(map[string]string{
		"user_id":     p.UserID,
		"session_id":  p.SessionID,
		"destination": p.Destination,
		"alert_id":    p.AlertID,
	}); err != nil {
		return "", err
	}

	alert, err := s.Alerts.FindByID(ctx, p.AlertID)
	if err != nil {
		return "", err
	}
	if alert.UserID != p.UserID {
		return "", helpers.NewUnauthorized("alert %s is not owned by user %s", p.AlertID, p.UserID)
	}

	sub := &models.MAlertSubscription{
		MSubscriptionBase: newBase(p.UserID, p.SessionID, p.Destination),
		AlertID:           p.AlertID,
	}

	if err := s.AlertSubs.Add(sub); err != nil {
		return "", err
	}
	registerCleanup(s, s.AlertSubs, sub.SessionID, sub.ID)

	s.Logger.Info("alert subscription %s created for alert %s", sub.ID, p.AlertID)
	return sub.ID, nil
}

func (s *SubscriptionService) CancelAlertSubscription(userID, id string) error {
	return cancelOwned(s.AlertSubs, userID, id)
}

// -----------------------------------------------------------------------------
// Automated trade subscriptions
// -----------------------------------------------------------------------------

// CreateTradeParams subscribe a session to one persisted trade rule.
type CreateTradeParams struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Destination string `json:"destination"`
	RuleID      string `json:"rule_id"`
}

func (s *SubscriptionService) CreateTradeSubscription(ctx context.Context, p CreateTradeParams) (string, error) {
	if err := requireFields(map[string]string{
		"user_id":     p.UserID,
		"session_id":  p.SessionID,
		"destination": p.Destination,
		"rule_id":     p.RuleID,
	}); err != nil {
		return "", err
	}

	rule, err := s.Rules.FindByID(ctx, p.RuleID)
	if err != nil {
		return "", err
	}
	if rule.UserID != p.UserID {
		return "", helpers.NewUnauthorized("trade rule %s is not owned by user %s", p.RuleID, p.UserID)
	}

	sub := &models.MTradeSubscription{
		MSubscriptionBase: newBase(p.UserID, p.SessionID, p.Destination),
		RuleID:            p.RuleID,
	}

	if err := s.TradeSubs.Add(sub); err != nil {
		return "", err
	}
	registerCleanup(s, s.TradeSubs, sub.SessionID, sub.ID)

	s.Logger.Info("trade subscription %s created for rule %s", sub.ID, p.RuleID)
	return sub.ID, nil
}

func (s *SubscriptionService) CancelTradeSubscription(userID, id string) error {
	return cancelOwned(s.TradeSubs, userID, id)
}

// -----------------------------------------------------------------------------
// Shared plumbing
// -----------------------------------------------------------------------------

func newBase(userID, sessionID, destination string) models.MSubscriptionBase {
	return models.MSubscriptionBase{
		ID:          uuid.NewString(),
		UserID:      userID,
		SessionID:   sessionID,
		Destination: destination,
		CreatedAt:   time.Now().UTC(),
	}
}

// -----------------------------------------------------------------------------

// registerCleanup ties the subscription's lifetime to its session. The
// callback tolerates the subscription being cancelled explicitly before
// the disconnect.
func registerCleanup[T registry.Entry](s *SubscriptionService, reg *registry.Registry[T], sessionID, id string) {
	s.Cleanup.Register(sessionID, func() {
		if _, err := reg.Remove(id); err != nil && !helpers.IsNotFound(err) {
			s.Logger.Error("session %s: cleanup of subscription %s failed: %v", sessionID, id, err)
		}
	})
}

// -----------------------------------------------------------------------------

func cancelOwned[T registry.Entry](reg *registry.Registry[T], userID, id string) error {
	entry, ok := reg.Get(id)
	if !ok {
		return helpers.NewNotFound("subscription %s not found", id)
	}
	if entry.Owner() != userID {
		return helpers.NewUnauthorized("subscription %s is not owned by user %s", id, userID)
	}
	_, err := reg.Remove(id)
	return err
}

// -----------------------------------------------------------------------------

func requireFields(fields map[string]string) error {
	for name, value := range fields {
		if value == "" {
			return helpers.NewValidation("%s is required", name)
		}
	}
	return nil
}
