package candles

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"tradewatch/src/logger"
	"tradewatch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// In-memory candle store fake
// -----------------------------------------------------------------------------

type fakeStore struct {
	mu      sync.Mutex
	candles []models.MCandle
}

func (f *fakeStore) SaveCandle(_ context.Context, c models.MCandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.candles {
		if existing.SameBar(c) {
			f.candles[i] = c
			return nil
		}
	}
	f.candles = append(f.candles, c)
	return nil
}

func (f *fakeStore) LatestCandle(_ context.Context, platform, symbol string, tf models.MTimeframe) (models.MCandle, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest models.MCandle
	found := false
	for _, c := range f.candles {
		if c.Platform == platform && c.Symbol == symbol && c.Timeframe == tf {
			if !found || c.Timestamp > latest.Timestamp {
				latest = c
				found = true
			}
		}
	}
	return latest, found, nil
}

func (f *fakeStore) CandlesInRange(_ context.Context, platform, symbol string, tf models.MTimeframe, start, end time.Time) ([]models.MCandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MCandle
	for _, c := range f.candles {
		if c.Platform == platform && c.Symbol == symbol && c.Timeframe == tf &&
			c.Timestamp >= start.Unix() && c.Timestamp <= end.Unix() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func minuteBar(open time.Time, close float64) models.MCandle {
	return models.MCandle{
		Platform:  "BINANCE",
		Symbol:    "BTCUSDT",
		Timeframe: models.TimeframeM1,
		Open:      close - 1,
		High:      close + 1,
		Low:       close - 2,
		Close:     close,
		Volume:    100,
		Timestamp: open.Unix(),
	}
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, logger.NewLogger("ERROR", "candles-test"))
}

func newStockSub() *models.MStockSubscription {
	return &models.MStockSubscription{
		MSubscriptionBase: models.MSubscriptionBase{
			ID:          "sub-1",
			UserID:      "user-1",
			SessionID:   "sess-1",
			Destination: "/topic/candles",
		},
		Platform:  "BINANCE",
		Symbol:    "BTCUSDT",
		Timeframe: models.TimeframeM1,
	}
}

// -----------------------------------------------------------------------------

// Subscribe at 10:00, receive the 10:00 bar as initial, then the 10:01 bar
// arrives: exactly the 10:01 bar comes through as an update.
func Test_CheckForUpdates_NewBar(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)
	sub := newStockSub()

	tenOclock := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	first := minuteBar(tenOclock, 50000)
	require.NoError(t, store.SaveCandle(ctx, first))

	initial, ok, err := svc.InitialCandle(ctx, sub)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Timestamp, initial.Timestamp)
	sub.AdvanceLastSent(initial)

	// Nothing new yet
	result, err := svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	assert.False(t, result.HasUpdates)

	// The 10:01 bar opens
	second := minuteBar(tenOclock.Add(time.Minute), 50050)
	require.NoError(t, store.SaveCandle(ctx, second))

	result, err = svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	require.True(t, result.HasUpdates)
	require.Len(t, result.Candles, 1)
	assert.Equal(t, second.Timestamp, result.Candles[0].Timestamp)
	assert.Equal(t, second.Timestamp, result.Latest.Timestamp)
}

// -----------------------------------------------------------------------------

// Once the caller commits the snapshot, the same bar is never reported
// again.
func Test_CheckForUpdates_NoRepeat(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)
	sub := newStockSub()

	open := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	bar := minuteBar(open, 50000)
	require.NoError(t, store.SaveCandle(ctx, bar))
	sub.AdvanceLastSent(bar)

	for i := 0; i < 3; i++ {
		result, err := svc.CheckForUpdates(ctx, sub)
		require.NoError(t, err)
		assert.False(t, result.HasUpdates, "pass %d must not repeat the committed bar", i)
	}
}

// -----------------------------------------------------------------------------

// The in-progress bar keeps the same timestamp but mutates OHLCV; that is
// an update, not a duplicate.
func Test_CheckForUpdates_ModifiedBar(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)
	sub := newStockSub()

	open := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	bar := minuteBar(open, 50000)
	require.NoError(t, store.SaveCandle(ctx, bar))
	sub.AdvanceLastSent(bar)

	mutated := bar
	mutated.Close = 50100
	mutated.High = 50150
	mutated.Sequence = bar.Sequence + 1
	require.NoError(t, store.SaveCandle(ctx, mutated))

	result, err := svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	require.True(t, result.HasUpdates)
	require.Len(t, result.Candles, 1)
	assert.Equal(t, bar.Timestamp, result.Candles[0].Timestamp, "same bar slot")
	assert.Equal(t, 50100.0, result.Candles[0].Close)

	// Commit and confirm the mutation is not re-reported
	sub.AdvanceLastSent(result.Latest)
	result, err = svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	assert.False(t, result.HasUpdates)
}

// -----------------------------------------------------------------------------

// A gap of several bars comes through oldest first, all at once.
func Test_CheckForUpdates_GapCatchUp(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)
	sub := newStockSub()

	open := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCandle(ctx, minuteBar(open, 50000)))
	sub.AdvanceLastSent(minuteBar(open, 50000))

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.SaveCandle(ctx, minuteBar(open.Add(time.Duration(i)*time.Minute), 50000+float64(i))))
	}

	result, err := svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	require.True(t, result.HasUpdates)
	require.Len(t, result.Candles, 3)
	for i := 1; i < len(result.Candles); i++ {
		assert.Less(t, result.Candles[i-1].Timestamp, result.Candles[i].Timestamp, "oldest first")
	}
	assert.Equal(t, result.Candles[2], result.Latest)
}

// -----------------------------------------------------------------------------

// A subscription created against an empty store commits no snapshot. Once
// bars start arriving, polling must deliver the current bar as a late
// initial instead of staying silent forever.
func Test_CheckForUpdates_LateInitialAfterEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)
	sub := newStockSub()

	// Store empty at subscribe time: nothing to report yet
	result, err := svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	assert.False(t, result.HasUpdates)

	// Bars start flowing in
	open := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveCandle(ctx, minuteBar(open.Add(time.Duration(i)*time.Minute), 50000+float64(i))))
	}

	result, err = svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	require.True(t, result.HasUpdates, "a snapshotless subscription must not go silent")
	assert.True(t, result.Initial)
	require.Len(t, result.Candles, 1)
	assert.Equal(t, open.Add(4*time.Minute).Unix(), result.Latest.Timestamp)

	// Once committed, the normal update path takes over
	sub.AdvanceLastSent(result.Latest)
	result, err = svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	assert.False(t, result.HasUpdates)

	require.NoError(t, store.SaveCandle(ctx, minuteBar(open.Add(5*time.Minute), 50005)))
	result, err = svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	require.True(t, result.HasUpdates)
	assert.False(t, result.Initial)
}

// -----------------------------------------------------------------------------

// An empty store yields neither updates nor an error.
func Test_CheckForUpdates_EmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{})
	sub := newStockSub()

	_, ok, err := svc.InitialCandle(ctx, sub)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err := svc.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	assert.False(t, result.HasUpdates)
}
