package registry

import (
	"testing"

	"tradewatch/src/logger"
	"tradewatch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func testCleanup() *CleanupRegistry {
	return NewCleanupRegistry(logger.NewLogger("ERROR", "cleanup-test"))
}

// -----------------------------------------------------------------------------

func Test_Cleanup_RunsAllCallbacks(t *testing.T) {
	c := testCleanup()

	var ran []string
	c.Register("sess-1", func() { ran = append(ran, "a") })
	c.Register("sess-1", func() { ran = append(ran, "b") })
	c.Register("sess-2", func() { ran = append(ran, "other") })

	c.OnDisconnect("sess-1")

	assert.ElementsMatch(t, []string{"a", "b"}, ran)
	assert.Equal(t, 0, c.PendingFor("sess-1"))
	assert.Equal(t, 1, c.PendingFor("sess-2"), "other sessions untouched")
}

// -----------------------------------------------------------------------------

func Test_Cleanup_PanicIsolation(t *testing.T) {
	c := testCleanup()

	var ran []string
	c.Register("sess-1", func() { ran = append(ran, "first") })
	c.Register("sess-1", func() { panic("broken callback") })
	c.Register("sess-1", func() { ran = append(ran, "last") })

	assert.NotPanics(t, func() { c.OnDisconnect("sess-1") })
	assert.Equal(t, []string{"first", "last"}, ran, "panicking callback must not stop the rest")
}

// -----------------------------------------------------------------------------

func Test_Cleanup_Idempotent(t *testing.T) {
	c := testCleanup()

	count := 0
	c.Register("sess-1", func() { count++ })

	c.OnDisconnect("sess-1")
	c.OnDisconnect("sess-1")
	c.OnDisconnect("sess-unknown")

	assert.Equal(t, 1, count, "callbacks run exactly once")
}

// -----------------------------------------------------------------------------

// A session with one subscription per feed kind: a single disconnect must
// empty all three registries.
func Test_Cleanup_FullSessionTeardown(t *testing.T) {
	c := testCleanup()

	stocks := NewRegistry[*models.MStockSubscription]()
	alerts := NewRegistry[*models.MAlertSubscription]()
	trades := NewRegistry[*models.MTradeSubscription]()

	base := func(id string) models.MSubscriptionBase {
		return models.MSubscriptionBase{ID: id, UserID: "user-1", SessionID: "sess-1", Destination: "/topic/" + id}
	}

	stockSub := &models.MStockSubscription{MSubscriptionBase: base("s1"), Platform: "BINANCE", Symbol: "BTCUSDT", Timeframe: models.TimeframeM1}
	alertSub := &models.MAlertSubscription{MSubscriptionBase: base("a1"), AlertID: "alert-1"}
	tradeSub := &models.MTradeSubscription{MSubscriptionBase: base("t1"), RuleID: "rule-1"}

	require.NoError(t, stocks.Add(stockSub))
	require.NoError(t, alerts.Add(alertSub))
	require.NoError(t, trades.Add(tradeSub))

	c.Register("sess-1", func() { _, _ = stocks.Remove("s1") })
	c.Register("sess-1", func() { _, _ = alerts.Remove("a1") })
	c.Register("sess-1", func() { _, _ = trades.Remove("t1") })

	c.OnDisconnect("sess-1")

	assert.Equal(t, 0, stocks.Len())
	assert.Equal(t, 0, alerts.Len())
	assert.Equal(t, 0, trades.Len())
}
