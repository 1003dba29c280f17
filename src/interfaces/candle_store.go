package interfaces

import (
	"context"
	"time"

	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// ICandleStore defines the contract for the market-data store.
// -----------------------------------------------------------------------------

type ICandleStore interface {

	// -----------------------------------------------------------------------------

	// LatestCandle returns the most recent bar by timestamp for the
	// (platform, symbol, timeframe) key. ok is false if no data yet.
	LatestCandle(ctx context.Context, platform, symbol string, tf models.MTimeframe) (candle models.MCandle, ok bool, err error)

	// -----------------------------------------------------------------------------

	// CandlesInRange returns all bars with open time in [start, end],
	// ordered oldest to newest.
	CandlesInRange(ctx context.Context, platform, symbol string, tf models.MTimeframe, start, end time.Time) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// SaveCandle inserts or replaces the bar identified by
	// (platform, symbol, timeframe, timestamp).
	SaveCandle(ctx context.Context, candle models.MCandle) error

	// -----------------------------------------------------------------------------

	// Close the underlying connection.
	Close() error
}
