package registry

import (
	"testing"

	"tradewatch/src/helpers"
	"tradewatch/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func stockSub(id, userID, sessionID string) *models.MStockSubscription {
	return &models.MStockSubscription{
		MSubscriptionBase: models.MSubscriptionBase{
			ID:          id,
			UserID:      userID,
			SessionID:   sessionID,
			Destination: "/topic/" + id,
		},
		Platform:  "BINANCE",
		Symbol:    "BTCUSDT",
		Timeframe: models.TimeframeM1,
	}
}

// -----------------------------------------------------------------------------

func Test_Registry_AddAndGet(t *testing.T) {
	r := NewRegistry[*models.MStockSubscription]()

	sub := stockSub("s1", "user-1", "sess-1")
	require.NoError(t, r.Add(sub))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, sub, got)

	// Duplicate id is a caller bug, surfaced as validation
	err := r.Add(stockSub("s1", "user-2", "sess-2"))
	assert.True(t, helpers.IsValidation(err))
	assert.Equal(t, 1, r.Len())
}

// -----------------------------------------------------------------------------

func Test_Registry_CancelTwice(t *testing.T) {
	r := NewRegistry[*models.MStockSubscription]()
	require.NoError(t, r.Add(stockSub("s1", "user-1", "sess-1")))

	// First cancel succeeds and returns the entry
	entry, err := r.Remove("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", entry.Key())

	// Second cancel of the same id is NotFound, not a silent success
	_, err = r.Remove("s1")
	assert.True(t, helpers.IsNotFound(err))
	assert.Equal(t, 0, r.Len())
}

// -----------------------------------------------------------------------------

func Test_Registry_SessionIndex(t *testing.T) {
	r := NewRegistry[*models.MStockSubscription]()
	require.NoError(t, r.Add(stockSub("s1", "user-1", "sess-1")))
	require.NoError(t, r.Add(stockSub("s2", "user-1", "sess-1")))
	require.NoError(t, r.Add(stockSub("s3", "user-2", "sess-2")))

	assert.ElementsMatch(t, []string{"s1", "s2"}, r.findBySession("sess-1"))
	assert.ElementsMatch(t, []string{"s3"}, r.findBySession("sess-2"))
	assert.Empty(t, r.findBySession("sess-unknown"))

	_, err := r.Remove("s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s2"}, r.findBySession("sess-1"))
}

// -----------------------------------------------------------------------------

func Test_Registry_FindByUser(t *testing.T) {
	r := NewRegistry[*models.MStockSubscription]()
	require.NoError(t, r.Add(stockSub("s1", "user-1", "sess-1")))
	require.NoError(t, r.Add(stockSub("s2", "user-2", "sess-2")))
	require.NoError(t, r.Add(stockSub("s3", "user-1", "sess-3")))

	owned := r.FindByUser("user-1")
	ids := make([]string, 0, len(owned))
	for _, s := range owned {
		ids = append(ids, s.Key())
	}
	assert.ElementsMatch(t, []string{"s1", "s3"}, ids)
}

// -----------------------------------------------------------------------------

func Test_Registry_ForEachSnapshot(t *testing.T) {
	r := NewRegistry[*models.MStockSubscription]()
	require.NoError(t, r.Add(stockSub("s1", "user-1", "sess-1")))
	require.NoError(t, r.Add(stockSub("s2", "user-1", "sess-1")))

	// Mutating the registry mid-iteration must not affect the pass: the
	// snapshot was taken up front.
	var visited []string
	r.ForEach(func(sub *models.MStockSubscription) {
		visited = append(visited, sub.Key())
		if sub.Key() == "s1" {
			_, _ = r.Remove("s2")
			_ = r.Add(stockSub("s4", "user-9", "sess-9"))
		} else if sub.Key() == "s2" {
			_, _ = r.Remove("s1")
			_ = r.Add(stockSub("s4", "user-9", "sess-9"))
		}
	})

	assert.ElementsMatch(t, []string{"s1", "s2"}, visited)
}
