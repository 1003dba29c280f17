package utils

import (
	"sync"
	"time"
)

// MarketScheduler caches per-platform trading calendars so poll loops can
// cheaply ask whether a platform's market is open right now. Closed
// markets produce no new candles; pollers skip the store fetch and only
// send heartbeats.
type MarketScheduler struct {
	mu        sync.RWMutex
	calendars map[string]*TradingCalendar
}

// -----------------------------------------------------------------------------

func NewMarketScheduler() *MarketScheduler {
	return &MarketScheduler{
		calendars: make(map[string]*TradingCalendar),
	}
}

// -----------------------------------------------------------------------------

// IsPlatformOpen reports whether the platform's market is open at the
// given time. Calendars are resolved lazily and cached.
func (ms *MarketScheduler) IsPlatformOpen(platform string, t time.Time) bool {
	ms.mu.RLock()
	cal, ok := ms.calendars[platform]
	ms.mu.RUnlock()

	if !ok {
		cal = GetCalendarForPlatform(platform)
		ms.mu.Lock()
		ms.calendars[platform] = cal
		ms.mu.Unlock()
	}

	return cal.IsOpenOnMinute(t)
}
