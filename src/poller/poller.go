package poller

import (
	"context"
	"sync"
	"time"

	"tradewatch/src/candles"
	"tradewatch/src/engine"
	"tradewatch/src/helpers"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/notifier"
	"tradewatch/src/registry"
	"tradewatch/src/utils"
)

// -----------------------------------------------------------------------------
// Scheduled poll loops
// -----------------------------------------------------------------------------
// Three independently scheduled fixed-interval loops: stock candles
// (updates + heartbeats), alerts, automated trade rules. Each pass works
// over a registry snapshot and isolates per-subscription failures: one
// slow or broken subscription is logged and skipped, the rest of the pass
// continues. External calls per subscription are bounded by CallTimeout.

type Poller struct {
	Logger     *logger.Logger
	Candles    *candles.Service
	Alerts     *engine.AlertEngine
	Trades     *engine.TradeEngine
	Dispatcher *notifier.Dispatcher
	Markets    *utils.MarketScheduler

	StockSubs *registry.Registry[*models.MStockSubscription]
	AlertSubs *registry.Registry[*models.MAlertSubscription]
	TradeSubs *registry.Registry[*models.MTradeSubscription]

	StockInterval time.Duration
	AlertInterval time.Duration
	TradeInterval time.Duration
	CallTimeout   time.Duration
}

// -----------------------------------------------------------------------------

// Start launches the three loops. Each runs until ctx is cancelled and
// signals wg when it exits.
func (p *Poller) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(3)
	go p.runLoop(ctx, wg, "stock-poll", p.StockInterval, p.ScanStockSubscriptions)
	go p.runLoop(ctx, wg, "alert-poll", p.AlertInterval, p.ScanAlertSubscriptions)
	go p.runLoop(ctx, wg, "trade-poll", p.TradeInterval, p.ScanTradeSubscriptions)
}

// -----------------------------------------------------------------------------

func (p *Poller) runLoop(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, pass func(context.Context)) {
	defer wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.Logger.Info("%s loop started (every %v)", name, interval)

	for {
		select {
		case <-ticker.C:
			pass(ctx)
		case <-ctx.Done():
			p.Logger.Info("%s loop stopped", name)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// safeEval isolates one subscription's work; a panic is logged, never
// allowed to kill the loop.
func (p *Poller) safeEval(kind, id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error("%s subscription %s: panic during poll: %v", kind, id, r)
		}
	}()
	fn()
}

// -----------------------------------------------------------------------------
// Stock candle pass
// -----------------------------------------------------------------------------

// ScanStockSubscriptions checks every stock subscription for new or
// modified candles. Subscriptions with no update this cycle get a
// heartbeat so the transport-level connection stays alive. Platforms with
// closed markets skip the store fetch entirely.
func (p *Poller) ScanStockSubscriptions(ctx context.Context) {
	now := time.Now().UTC()

	p.StockSubs.ForEach(func(sub *models.MStockSubscription) {
		p.safeEval("stock", sub.ID, func() {
			if !p.Markets.IsPlatformOpen(sub.Platform, now) {
				p.heartbeat(sub)
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
			defer cancel()

			result, err := p.Candles.CheckForUpdates(callCtx, sub)
			if err != nil {
				p.Logger.Error("stock subscription %s: update check failed: %v", sub.ID, err)
				return
			}

			if !result.HasUpdates {
				p.heartbeat(sub)
				return
			}

			var pushErr error
			if result.Initial {
				// The subscription never committed a snapshot (empty store
				// at creation, or the initial push failed); deliver the
				// first bar late.
				pushErr = p.Dispatcher.SendInitialCandle(sub, result.Latest)
			} else {
				pushErr = p.Dispatcher.SendCandleUpdates(sub, result.Candles)
			}
			if pushErr != nil {
				// Snapshot stays put; the same update is re-detected
				// next cycle.
				p.Logger.Error("stock subscription %s: push failed: %v", sub.ID, pushErr)
				return
			}
			sub.AdvanceLastSent(result.Latest)
		})
	})
}

// -----------------------------------------------------------------------------

func (p *Poller) heartbeat(sub *models.MStockSubscription) {
	if err := p.Dispatcher.SendHeartbeat(sub); err != nil {
		p.Logger.Debug("stock subscription %s: heartbeat failed: %v", sub.ID, err)
	}
}

// -----------------------------------------------------------------------------
// Alert pass
// -----------------------------------------------------------------------------

// ScanAlertSubscriptions evaluates every alert subscription. A triggered
// alert is gone afterwards, so its subscription is retired too. A
// subscription whose alert vanished out-of-band (consumed by a racing
// pass) is retired silently.
func (p *Poller) ScanAlertSubscriptions(ctx context.Context) {
	p.AlertSubs.ForEach(func(sub *models.MAlertSubscription) {
		p.safeEval("alert", sub.ID, func() {
			callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
			defer cancel()

			triggered, err := p.Alerts.EvaluateSubscription(callCtx, sub)
			if err != nil {
				if helpers.IsNotFound(err) {
					p.retireAlertSub(sub.ID)
					return
				}
				p.Logger.Error("alert subscription %s: evaluation failed: %v", sub.ID, err)
				return
			}
			if triggered {
				p.retireAlertSub(sub.ID)
			}
		})
	})
}

// -----------------------------------------------------------------------------

func (p *Poller) retireAlertSub(id string) {
	if _, err := p.AlertSubs.Remove(id); err != nil && !helpers.IsNotFound(err) {
		p.Logger.Error("alert subscription %s: retire failed: %v", id, err)
	}
}

// -----------------------------------------------------------------------------
// Automated trade pass
// -----------------------------------------------------------------------------

// ScanTradeSubscriptions evaluates every trade-rule subscription against
// the latest minute bar. Rules stay subscribed after firing; only a rule
// deleted out-of-band retires its subscription.
func (p *Poller) ScanTradeSubscriptions(ctx context.Context) {
	p.TradeSubs.ForEach(func(sub *models.MTradeSubscription) {
		p.safeEval("trade", sub.ID, func() {
			callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
			defer cancel()

			if _, err := p.Trades.EvaluateSubscription(callCtx, sub); err != nil {
				if helpers.IsNotFound(err) {
					if _, rerr := p.TradeSubs.Remove(sub.ID); rerr != nil && !helpers.IsNotFound(rerr) {
						p.Logger.Error("trade subscription %s: retire failed: %v", sub.ID, rerr)
					}
					return
				}
				p.Logger.Error("trade subscription %s: evaluation failed: %v", sub.ID, err)
			}
		})
	})
}
