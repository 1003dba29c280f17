package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tradewatch/src/candles"
	"tradewatch/src/helpers"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/notifier"
	"tradewatch/src/registry"
	"tradewatch/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type stubStore struct {
	mu      sync.Mutex
	candles map[string]models.MCandle // key: platform|symbol|tf
}

func storeKey(platform, symbol string, tf models.MTimeframe) string {
	return platform + "|" + symbol + "|" + string(tf)
}

func (s *stubStore) SaveCandle(_ context.Context, c models.MCandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candles == nil {
		s.candles = make(map[string]models.MCandle)
	}
	s.candles[storeKey(c.Platform, c.Symbol, c.Timeframe)] = c
	return nil
}

func (s *stubStore) LatestCandle(_ context.Context, platform, symbol string, tf models.MTimeframe) (models.MCandle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candles[storeKey(platform, symbol, tf)]
	return c, ok, nil
}

func (s *stubStore) CandlesInRange(_ context.Context, _, _ string, _ models.MTimeframe, _, _ time.Time) ([]models.MCandle, error) {
	return nil, nil
}

func (s *stubStore) Close() error { return nil }

// -----------------------------------------------------------------------------

type captureTransport struct {
	mu       sync.Mutex
	pushErr  error
	messages []models.MUpdateMessage
}

func (c *captureTransport) Push(_ string, msg models.MUpdateMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pushErr != nil {
		return c.pushErr
	}
	c.messages = append(c.messages, msg)
	return nil
}

func (c *captureTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// -----------------------------------------------------------------------------
// Fixture
// -----------------------------------------------------------------------------

type serviceFixture struct {
	svc       *SubscriptionService
	store     *stubStore
	transport *captureTransport
	cleanup   *registry.CleanupRegistry
	alerts    *storage.MemoryAlertRepo
	rules     *storage.MemoryTradeRuleRepo
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	log := logger.NewLogger("ERROR", "service-test")
	store := &stubStore{}
	transport := &captureTransport{}
	cleanup := registry.NewCleanupRegistry(log)

	f := &serviceFixture{
		store:     store,
		transport: transport,
		cleanup:   cleanup,
		alerts:    storage.NewMemoryAlertRepo(),
		rules:     storage.NewMemoryTradeRuleRepo(),
	}
	f.svc = &SubscriptionService{
		Logger:     log,
		Candles:    candles.NewService(store, log),
		Dispatcher: notifier.NewDispatcher(transport),
		Cleanup:    cleanup,
		Alerts:     f.alerts,
		Rules:      f.rules,
		StockSubs:  registry.NewRegistry[*models.MStockSubscription](),
		AlertSubs:  registry.NewRegistry[*models.MAlertSubscription](),
		TradeSubs:  registry.NewRegistry[*models.MTradeSubscription](),
	}
	return f
}

func stockParams() CreateStockParams {
	return CreateStockParams{
		UserID:      "user-1",
		SessionID:   "sess-1",
		Destination: "/topic/candles",
		Platform:    "BINANCE",
		Symbol:      "BTCUSDT",
		Timeframe:   "M1",
	}
}

// -----------------------------------------------------------------------------

func Test_CreateStockSubscription(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	// Seed the current bar so the initial send has something to push
	now := models.TruncateToTimeframe(time.Now().UTC(), models.TimeframeM1)
	require.NoError(t, f.store.SaveCandle(ctx, models.MCandle{
		Platform: "BINANCE", Symbol: "BTCUSDT", Timeframe: models.TimeframeM1,
		Open: 50000, High: 50010, Low: 49990, Close: 50005, Volume: 10,
		Timestamp: now.Unix(),
	}))

	id, err := f.svc.CreateStockSubscription(ctx, stockParams())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sub, ok := f.svc.StockSubs.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.TimeframeM1, sub.Timeframe)

	// The initial candle was pushed and committed as the snapshot
	assert.Equal(t, 1, f.transport.count())
	last, sent := sub.LastSent()
	require.True(t, sent)
	assert.Equal(t, now.Unix(), last.Timestamp)

	// Session teardown has one callback to run
	assert.Equal(t, 1, f.cleanup.PendingFor("sess-1"))
}

// -----------------------------------------------------------------------------

// A failed initial push must leave the snapshot uncommitted, so the poll
// loop re-offers that bar as a late initial instead of dropping it for good.
func Test_CreateStockSubscription_FailedInitialPush(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	now := models.TruncateToTimeframe(time.Now().UTC(), models.TimeframeM1)
	require.NoError(t, f.store.SaveCandle(ctx, models.MCandle{
		Platform: "BINANCE", Symbol: "BTCUSDT", Timeframe: models.TimeframeM1,
		Open: 50000, High: 50010, Low: 49990, Close: 50005, Volume: 10,
		Timestamp: now.Unix(),
	}))

	f.transport.pushErr = errors.New("client buffer gone")
	id, err := f.svc.CreateStockSubscription(ctx, stockParams())
	require.NoError(t, err, "a failed push does not fail creation")

	sub, ok := f.svc.StockSubs.Get(id)
	require.True(t, ok)
	_, sent := sub.LastSent()
	assert.False(t, sent, "nothing reached the client, nothing is committed")

	// The next change-detection pass re-offers the bar as a late initial
	f.transport.pushErr = nil
	result, err := f.svc.Candles.CheckForUpdates(ctx, sub)
	require.NoError(t, err)
	require.True(t, result.HasUpdates)
	assert.True(t, result.Initial)
	assert.Equal(t, now.Unix(), result.Latest.Timestamp)
}

// -----------------------------------------------------------------------------

func Test_CreateStockSubscription_Validation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	bad := stockParams()
	bad.Timeframe = "M3"
	_, err := f.svc.CreateStockSubscription(ctx, bad)
	assert.True(t, helpers.IsValidation(err))

	missing := stockParams()
	missing.Symbol = ""
	_, err = f.svc.CreateStockSubscription(ctx, missing)
	assert.True(t, helpers.IsValidation(err))

	assert.Equal(t, 0, f.svc.StockSubs.Len(), "validation failures register nothing")
}

// -----------------------------------------------------------------------------

func Test_CancelStockSubscription_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.CreateStockSubscription(ctx, stockParams())
	require.NoError(t, err)

	// A stranger cannot cancel it
	err = f.svc.CancelStockSubscription("intruder", id)
	assert.True(t, helpers.IsUnauthorized(err))
	assert.Equal(t, 1, f.svc.StockSubs.Len())

	// The owner can, once
	require.NoError(t, f.svc.CancelStockSubscription("user-1", id))
	err = f.svc.CancelStockSubscription("user-1", id)
	assert.True(t, helpers.IsNotFound(err))
}

// -----------------------------------------------------------------------------

func Test_CreateAlertSubscription_OwnershipCheck(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	require.NoError(t, f.alerts.Create(ctx, models.MAlert{
		ID: "alert-1", UserID: "someone-else",
		Platform: "BINANCE", Symbol: "BTCUSDT",
		Condition: models.ConditionPriceAbove, Threshold: 50000,
		CreatedAt: time.Now().UTC(),
	}))

	_, err := f.svc.CreateAlertSubscription(ctx, CreateAlertParams{
		UserID: "user-1", SessionID: "sess-1", Destination: "/topic/alerts", AlertID: "alert-1",
	})
	assert.True(t, helpers.IsUnauthorized(err))

	_, err = f.svc.CreateAlertSubscription(ctx, CreateAlertParams{
		UserID: "user-1", SessionID: "sess-1", Destination: "/topic/alerts", AlertID: "missing",
	})
	assert.True(t, helpers.IsNotFound(err))
}

// -----------------------------------------------------------------------------

func Test_SessionDisconnect_CleansAllSubscriptions(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	require.NoError(t, f.alerts.Create(ctx, models.MAlert{
		ID: "alert-1", UserID: "user-1",
		Platform: "BINANCE", Symbol: "BTCUSDT",
		Condition: models.ConditionPriceAbove, Threshold: 50000,
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, f.rules.Create(ctx, models.MTradeRule{
		ID: "rule-1", UserID: "user-1", PortfolioID: "p-1",
		Platform: "BINANCE", Symbol: "BTCUSDT",
		Condition: models.ConditionPriceAbove, Action: models.TradeActionBuy,
		Quantity: 1, QuantityType: models.QuantityTypeUnits, Threshold: 50000,
		IsActive: true, CreatedAt: time.Now().UTC(),
	}))

	_, err := f.svc.CreateStockSubscription(ctx, stockParams())
	require.NoError(t, err)
	_, err = f.svc.CreateAlertSubscription(ctx, CreateAlertParams{
		UserID: "user-1", SessionID: "sess-1", Destination: "/topic/alerts", AlertID: "alert-1",
	})
	require.NoError(t, err)
	_, err = f.svc.CreateTradeSubscription(ctx, CreateTradeParams{
		UserID: "user-1", SessionID: "sess-1", Destination: "/topic/trades", RuleID: "rule-1",
	})
	require.NoError(t, err)

	require.Equal(t, 3, f.cleanup.PendingFor("sess-1"))

	f.cleanup.OnDisconnect("sess-1")

	assert.Equal(t, 0, f.svc.StockSubs.Len())
	assert.Equal(t, 0, f.svc.AlertSubs.Len())
	assert.Equal(t, 0, f.svc.TradeSubs.Len())

	// The persisted entities survive the disconnect
	_, err = f.alerts.FindByID(ctx, "alert-1")
	assert.NoError(t, err)
	_, err = f.rules.FindByID(ctx, "rule-1")
	assert.NoError(t, err)
}
