package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func Test_ParseTimeframe(t *testing.T) {
	tests := []struct {
		input    string
		expected MTimeframe
		wantErr  bool
	}{
		{"M1", TimeframeM1, false},
		{"1m", TimeframeM1, false},
		{"m5", TimeframeM5, false},
		{"5M", TimeframeM5, false},
		{"M15", TimeframeM15, false},
		{"15m", TimeframeM15, false},
		{"H1", TimeframeH1, false},
		{"4h", TimeframeH4, false},
		{"1d", TimeframeD1, false},
		{" D1 ", TimeframeD1, false},
		{"M30", "", true},
		{"", "", true},
		{"weekly", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tf, err := ParseTimeframe(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tf)
		})
	}
}

// -----------------------------------------------------------------------------

func Test_NextHigher_Hierarchy(t *testing.T) {
	// Walking up from M1 must terminate at D1 in exactly five steps.
	tf := TimeframeM1
	steps := 0
	for {
		next, ok := tf.NextHigher()
		if !ok {
			break
		}
		tf = next
		steps++
		require.LessOrEqual(t, steps, len(AllTimeframes), "hierarchy walk must terminate")
	}

	assert.Equal(t, TimeframeD1, tf)
	assert.Equal(t, 5, steps)
}

// -----------------------------------------------------------------------------

func Test_IsAtBoundary(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		tf       MTimeframe
		ts       time.Time
		expected bool
	}{
		// M1 closes into M5 on minutes divisible by 5
		{"M1 at 10:05", TimeframeM1, at(10, 5), true},
		{"M1 at 10:00", TimeframeM1, at(10, 0), true},
		{"M1 at 10:03", TimeframeM1, at(10, 3), false},

		// M5 closes into M15 on minutes divisible by 15
		{"M5 at 10:15", TimeframeM5, at(10, 15), true},
		{"M5 at 10:30", TimeframeM5, at(10, 30), true},
		{"M5 at 10:05", TimeframeM5, at(10, 5), false},

		// M15 closes into H1 on the hour
		{"M15 at 11:00", TimeframeM15, at(11, 0), true},
		{"M15 at 11:45", TimeframeM15, at(11, 45), false},

		// H1 closes into H4 on hours divisible by 4
		{"H1 at 08:00", TimeframeH1, at(8, 0), true},
		{"H1 at 12:00", TimeframeH1, at(12, 0), true},
		{"H1 at 09:00", TimeframeH1, at(9, 0), false},
		{"H1 at 08:30", TimeframeH1, at(8, 30), false},

		// H4 closes into D1 at midnight
		{"H4 at 00:00", TimeframeH4, at(0, 0), true},
		{"H4 at 04:00", TimeframeH4, at(4, 0), false},
		{"H4 at 00:01", TimeframeH4, at(0, 1), false},

		// D1 has no parent
		{"D1 at 00:00", TimeframeD1, at(0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAtBoundary(tt.ts, tt.tf))
		})
	}
}

// -----------------------------------------------------------------------------

func Test_TruncateToTimeframe(t *testing.T) {
	ts := time.Date(2026, 3, 10, 13, 47, 23, 0, time.UTC)

	tests := []struct {
		tf       MTimeframe
		expected time.Time
	}{
		{TimeframeM1, time.Date(2026, 3, 10, 13, 47, 0, 0, time.UTC)},
		{TimeframeM5, time.Date(2026, 3, 10, 13, 45, 0, 0, time.UTC)},
		{TimeframeM15, time.Date(2026, 3, 10, 13, 45, 0, 0, time.UTC)},
		{TimeframeH1, time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)},
		{TimeframeH4, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
		{TimeframeD1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.tf), func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateToTimeframe(ts, tt.tf))
		})
	}
}

// -----------------------------------------------------------------------------

func Test_Duration(t *testing.T) {
	assert.Equal(t, time.Minute, TimeframeM1.Duration())
	assert.Equal(t, 4*time.Hour, TimeframeH4.Duration())
	assert.Equal(t, 24*time.Hour, TimeframeD1.Duration())
	assert.Equal(t, time.Duration(0), MTimeframe("bogus").Duration())
}
