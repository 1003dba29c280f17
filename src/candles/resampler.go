package candles

import (
	"sort"
	"time"

	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// Timeframe resampling
// -----------------------------------------------------------------------------
// Rolls minute bars up into higher-timeframe bars. The feed generator uses
// this to derive M5..D1 bars from its M1 stream, so every timeframe a
// subscription can ask for is backed by consistent data.

// WindowBounds returns the [start, end) window of tf containing ts.
func WindowBounds(ts time.Time, tf models.MTimeframe) (time.Time, time.Time) {
	start := models.TruncateToTimeframe(ts, tf)
	return start, start.Add(tf.Duration())
}

// -----------------------------------------------------------------------------

// Aggregate combines lower-timeframe bars into one bar of tf. Bars are
// combined in open-time order: open from the first, close from the last,
// high/low/volume across all. The second return value is false for an empty
// input. The caller is responsible for only passing bars of one window; the
// result carries the window start of the earliest bar.
func Aggregate(bars []models.MCandle, tf models.MTimeframe) (models.MCandle, bool) {
	if len(bars) == 0 {
		return models.MCandle{}, false
	}

	sorted := make([]models.MCandle, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	first := sorted[0]
	windowStart := models.TruncateToTimeframe(first.OpenTime(), tf)

	out := models.MCandle{
		Platform:  first.Platform,
		Symbol:    first.Symbol,
		Timeframe: tf,
		Open:      first.Open,
		High:      first.High,
		Low:       first.Low,
		Close:     sorted[len(sorted)-1].Close,
		Timestamp: windowStart.Unix(),
	}
	for _, b := range sorted {
		if b.High > out.High {
			out.High = b.High
		}
		if b.Low < out.Low {
			out.Low = b.Low
		}
		out.Volume += b.Volume
		// The sum moves whenever any member bar mutates, so readers see
		// the derived bar as modified too.
		out.Sequence += b.Sequence
	}
	return out, true
}

// -----------------------------------------------------------------------------

// Resample groups bars by their tf window and aggregates each group,
// returning the derived bars oldest first.
func Resample(bars []models.MCandle, tf models.MTimeframe) []models.MCandle {
	if len(bars) == 0 {
		return nil
	}

	groups := make(map[int64][]models.MCandle)
	for _, b := range bars {
		start := models.TruncateToTimeframe(b.OpenTime(), tf)
		groups[start.Unix()] = append(groups[start.Unix()], b)
	}

	starts := make([]int64, 0, len(groups))
	for start := range groups {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make([]models.MCandle, 0, len(starts))
	for _, start := range starts {
		if bar, ok := Aggregate(groups[start], tf); ok {
			out = append(out, bar)
		}
	}
	return out
}
