package models

import (
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// MTimeframe
// -----------------------------------------------------------------------------

// MTimeframe is a candle bucket granularity. Timeframes form a strict
// hierarchy: M1 < M5 < M15 < H1 < H4 < D1.
type MTimeframe string

const (
	TimeframeM1  MTimeframe = "M1"
	TimeframeM5  MTimeframe = "M5"
	TimeframeM15 MTimeframe = "M15"
	TimeframeH1  MTimeframe = "H1"
	TimeframeH4  MTimeframe = "H4"
	TimeframeD1  MTimeframe = "D1"
)

// AllTimeframes lists every supported timeframe in ascending order.
var AllTimeframes = []MTimeframe{
	TimeframeM1,
	TimeframeM5,
	TimeframeM15,
	TimeframeH1,
	TimeframeH4,
	TimeframeD1,
}

// -----------------------------------------------------------------------------

// ParseTimeframe converts a string into an MTimeframe. Accepts the canonical
// form ("M1") as well as exchange-style lowercase ("1m", "4h", "1d").
func ParseTimeframe(s string) (MTimeframe, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M1", "1M":
		return TimeframeM1, nil
	case "M5", "5M":
		return TimeframeM5, nil
	case "M15", "15M":
		return TimeframeM15, nil
	case "H1", "1H":
		return TimeframeH1, nil
	case "H4", "4H":
		return TimeframeH4, nil
	case "D1", "1D":
		return TimeframeD1, nil
	default:
		return "", fmt.Errorf("unknown timeframe: %q", s)
	}
}

// -----------------------------------------------------------------------------

// Duration returns the bar period of the timeframe.
func (tf MTimeframe) Duration() time.Duration {
	switch tf {
	case TimeframeM1:
		return time.Minute
	case TimeframeM5:
		return 5 * time.Minute
	case TimeframeM15:
		return 15 * time.Minute
	case TimeframeH1:
		return time.Hour
	case TimeframeH4:
		return 4 * time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	default:
		return 0
	}
}

// -----------------------------------------------------------------------------

// NextHigher returns the next-higher timeframe in the hierarchy.
// The second return value is false for D1, which has no parent.
func (tf MTimeframe) NextHigher() (MTimeframe, bool) {
	switch tf {
	case TimeframeM1:
		return TimeframeM5, true
	case TimeframeM5:
		return TimeframeM15, true
	case TimeframeM15:
		return TimeframeH1, true
	case TimeframeH1:
		return TimeframeH4, true
	case TimeframeH4:
		return TimeframeD1, true
	default:
		return "", false
	}
}

// -----------------------------------------------------------------------------

// IsAtBoundary reports whether t marks the start of a new bar one level
// above tf. D1 has no higher timeframe and never hits a boundary.
func IsAtBoundary(t time.Time, tf MTimeframe) bool {
	t = t.UTC()
	switch tf {
	case TimeframeM1:
		return t.Minute()%5 == 0
	case TimeframeM5:
		return t.Minute()%15 == 0
	case TimeframeM15:
		return t.Minute() == 0
	case TimeframeH1:
		return t.Hour()%4 == 0 && t.Minute() == 0
	case TimeframeH4:
		return t.Hour() == 0 && t.Minute() == 0
	default:
		return false
	}
}

// -----------------------------------------------------------------------------

// TruncateToTimeframe aligns t down to the start of its bar in tf.
func TruncateToTimeframe(t time.Time, tf MTimeframe) time.Time {
	t = t.UTC()
	switch tf {
	case TimeframeD1:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(tf.Duration())
	}
}
