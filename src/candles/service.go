package candles

import (
	"context"
	"time"

	"tradewatch/src/helpers"
	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// Candle processing service
// -----------------------------------------------------------------------------
// Change detection against a stock subscription's last-sent snapshot. The
// in-progress bar of the lowest timeframe mutates between polls, so "same
// timestamp, different OHLCV" is a real update, not a duplicate.

type Service struct {
	Store  interfaces.ICandleStore
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewService(store interfaces.ICandleStore, log *logger.Logger) *Service {
	return &Service{Store: store, Logger: log}
}

// -----------------------------------------------------------------------------

// UpdateResult is what one change-detection pass produced for a
// subscription. Candles are ordered oldest to newest; Latest is the newest
// revision the store currently holds. Initial marks a late first send for a
// subscription that never committed a snapshot, so the caller pushes it with
// kind INITIAL instead of UPDATE.
type UpdateResult struct {
	HasUpdates bool
	Initial    bool
	Candles    []models.MCandle
	Latest     models.MCandle
}

// -----------------------------------------------------------------------------

// LatestCandle returns the most recent bar for the key.
func (s *Service) LatestCandle(ctx context.Context, platform, symbol string, tf models.MTimeframe) (models.MCandle, bool, error) {
	candle, ok, err := s.Store.LatestCandle(ctx, platform, symbol, tf)
	if err != nil {
		return models.MCandle{}, false, helpers.NewExternal("latest candle lookup failed", err)
	}
	return candle, ok, nil
}

// -----------------------------------------------------------------------------

// InitialCandle fetches the current bar for a fresh subscription. The
// caller pushes it with kind INITIAL and commits it via sub.AdvanceLastSent
// only after the push succeeded; until a snapshot exists, CheckForUpdates
// keeps offering the current bar as a late initial.
func (s *Service) InitialCandle(ctx context.Context, sub *models.MStockSubscription) (models.MCandle, bool, error) {
	return s.LatestCandle(ctx, sub.Platform, sub.Symbol, sub.Timeframe)
}

// -----------------------------------------------------------------------------

// CheckForUpdates compares the subscription's last-sent snapshot against
// the store:
//
//   - latest bar strictly newer than last-sent: every bar after last-sent
//     up to and including the latest, oldest first
//   - same bar slot but mutated OHLCV: that single modified candle
//   - no snapshot committed yet: the current bar as a late initial
//   - otherwise: no updates
//
// The method never mutates the subscription. The caller advances the
// snapshot with sub.AdvanceLastSent(result.Latest) once the update has
// actually been handed to the transport, so an update the client has not
// seen is re-detected on the next pass.
func (s *Service) CheckForUpdates(ctx context.Context, sub *models.MStockSubscription) (UpdateResult, error) {
	latest, ok, err := s.Store.LatestCandle(ctx, sub.Platform, sub.Symbol, sub.Timeframe)
	if err != nil {
		return UpdateResult{}, helpers.NewExternal("latest candle lookup failed", err)
	}
	if !ok {
		return UpdateResult{}, nil
	}

	lastSent, sent := sub.LastSent()
	if !sent {
		// No committed snapshot: the subscription was created against an
		// empty store, or its initial push failed. Offer the current bar as
		// a late initial; staying silent here would starve the client of
		// every revision until it resubscribes.
		return UpdateResult{HasUpdates: true, Initial: true, Candles: []models.MCandle{latest}, Latest: latest}, nil
	}

	switch {
	case latest.Timestamp > lastSent.Timestamp:
		start := time.Unix(lastSent.Timestamp, 0).UTC().Add(time.Second)
		end := latest.OpenTime()
		bars, err := s.Store.CandlesInRange(ctx, sub.Platform, sub.Symbol, sub.Timeframe, start, end)
		if err != nil {
			return UpdateResult{}, helpers.NewExternal("candle range lookup failed", err)
		}
		if len(bars) == 0 {
			// Range backend lagging behind the latest pointer; send the
			// latest bar alone rather than nothing.
			bars = []models.MCandle{latest}
		}
		return UpdateResult{HasUpdates: true, Candles: bars, Latest: bars[len(bars)-1]}, nil

	case latest.Timestamp == lastSent.Timestamp && !latest.PriceEquals(lastSent):
		return UpdateResult{HasUpdates: true, Candles: []models.MCandle{latest}, Latest: latest}, nil

	default:
		return UpdateResult{}, nil
	}
}
