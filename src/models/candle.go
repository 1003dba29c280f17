package models

import "time"

// MCandle represents one OHLCV bar for a (platform, symbol, timeframe) key.
// Bars are immutable once their period has elapsed; the in-progress bar of
// the lowest timeframe keeps mutating until the next bar opens.
type MCandle struct {
	Platform  string     `json:"platform" db:"platform"`
	Symbol    string     `json:"symbol" db:"symbol"`
	Timeframe MTimeframe `json:"timeframe" db:"timeframe"`
	Open      float64    `json:"open" db:"open"`
	High      float64    `json:"high" db:"high"`
	Low       float64    `json:"low" db:"low"`
	Close     float64    `json:"close" db:"close"`
	Volume    float64    `json:"volume" db:"volume"`
	Timestamp int64      `json:"timestamp" db:"timestamp"` // bar open time, unix seconds
	Sequence  int64      `json:"sequence" db:"sequence"`   // monotonic per key, bumped on mutation
}

// -----------------------------------------------------------------------------

// OpenTime returns the bar open time as time.Time (UTC).
func (c MCandle) OpenTime() time.Time {
	return time.Unix(c.Timestamp, 0).UTC()
}

// -----------------------------------------------------------------------------

// SameBar reports whether two candles describe the same bar slot.
func (c MCandle) SameBar(other MCandle) bool {
	return c.Platform == other.Platform &&
		c.Symbol == other.Symbol &&
		c.Timeframe == other.Timeframe &&
		c.Timestamp == other.Timestamp
}

// -----------------------------------------------------------------------------

// PriceEquals reports whether the OHLCV fields of both candles match.
// Used for modified-bar change detection on the in-progress candle.
func (c MCandle) PriceEquals(other MCandle) bool {
	return c.Open == other.Open &&
		c.High == other.High &&
		c.Low == other.Low &&
		c.Close == other.Close &&
		c.Volume == other.Volume
}
