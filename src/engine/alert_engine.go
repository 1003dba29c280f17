package engine

import (
	"context"
	"time"

	"tradewatch/src/helpers"
	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/notifier"
)

// -----------------------------------------------------------------------------
// Alert evaluation engine
// -----------------------------------------------------------------------------
// Alerts are single-shot: trigger -> delete -> notify. The repository
// delete is the linearization point; when two poll passes race on the same
// alert, the pass that finds it already gone treats it as not-triggered,
// so exactly one deletion and one notification happen.

type AlertEngine struct {
	Alerts     interfaces.IAlertRepo
	Store      interfaces.ICandleStore
	Dispatcher *notifier.Dispatcher
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAlertEngine(alerts interfaces.IAlertRepo, store interfaces.ICandleStore, d *notifier.Dispatcher, log *logger.Logger) *AlertEngine {
	return &AlertEngine{Alerts: alerts, Store: store, Dispatcher: d, Logger: log}
}

// -----------------------------------------------------------------------------
// Pure predicates
// -----------------------------------------------------------------------------

// CheckAlertAgainstCandle returns the candle when its close satisfies the
// alert's condition. Close exactly at the threshold never triggers.
func CheckAlertAgainstCandle(alert models.MAlert, candle models.MCandle) (models.MCandle, bool) {
	if alert.Condition.Matches(candle.Close, alert.Threshold) {
		return candle, true
	}
	return models.MCandle{}, false
}

// -----------------------------------------------------------------------------

// CheckAlertAgainstTimeframe scans all bars of tf within [start, end] in
// ascending time order and returns the first (earliest) triggering bar.
// Used for catch-up evaluation after a gap, so the earliest qualifying
// event fires rather than the latest.
func (e *AlertEngine) CheckAlertAgainstTimeframe(ctx context.Context, alert models.MAlert, tf models.MTimeframe, start, end time.Time) (models.MCandle, bool, error) {
	bars, err := e.Store.CandlesInRange(ctx, alert.Platform, alert.Symbol, tf, start, end)
	if err != nil {
		return models.MCandle{}, false, helpers.NewExternal("candle range lookup failed", err)
	}

	for _, bar := range bars {
		if hit, ok := CheckAlertAgainstCandle(alert, bar); ok {
			return hit, true, nil
		}
	}
	return models.MCandle{}, false, nil
}

// -----------------------------------------------------------------------------
// Subscription evaluation
// -----------------------------------------------------------------------------

// EvaluateSubscription runs one poll pass for an alert subscription. The
// first pass catches up over every minute bar since the alert was created;
// later passes only look at the newest minute bar. Returns true when the
// alert fired (and is gone).
//
// A NotFoundError from the alert lookup means the alert was already
// consumed elsewhere; callers cancel the subscription on it.
func (e *AlertEngine) EvaluateSubscription(ctx context.Context, sub *models.MAlertSubscription) (bool, error) {
	alert, err := e.Alerts.FindByID(ctx, sub.AlertID)
	if err != nil {
		return false, err
	}

	initialDone, lastChecked := sub.CheckState()

	var (
		hit       models.MCandle
		triggered bool
		checkedTo time.Time
	)

	if !initialDone {
		start := models.TruncateToTimeframe(alert.CreatedAt, models.TimeframeM1)
		if lastChecked.After(start) {
			start = lastChecked
		}
		end := time.Now().UTC()
		hit, triggered, err = e.CheckAlertAgainstTimeframe(ctx, alert, models.TimeframeM1, start, end)
		if err != nil {
			return false, err
		}
		checkedTo = models.TruncateToTimeframe(end, models.TimeframeM1)
	} else {
		latest, ok, lerr := e.Store.LatestCandle(ctx, alert.Platform, alert.Symbol, models.TimeframeM1)
		if lerr != nil {
			return false, helpers.NewExternal("latest candle lookup failed", lerr)
		}
		if !ok {
			return false, nil
		}
		if !latest.OpenTime().Before(lastChecked) {
			hit, triggered = CheckAlertAgainstCandle(alert, latest)
		}
		checkedTo = latest.OpenTime()
	}

	if !triggered {
		sub.MarkChecked(checkedTo)
		return false, nil
	}

	// Delete first: whoever deletes owns the notification.
	if err := e.Alerts.Delete(ctx, alert.ID); err != nil {
		if helpers.IsNotFound(err) {
			// Another pass won the race; nothing to notify.
			sub.MarkChecked(checkedTo)
			return false, nil
		}
		return false, err
	}

	if err := e.Dispatcher.SendAlertTriggered(sub, alert, hit); err != nil {
		// The alert is already gone; delivery is at-most-once.
		e.Logger.Error("alert %s trigger push failed: %v", alert.ID, err)
	}

	sub.MarkChecked(checkedTo)
	return true, nil
}
