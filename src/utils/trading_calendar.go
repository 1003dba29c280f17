package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar calculates market hours using scmhub/calendar. Crypto
// platforms trade around the clock and are modelled as AlwaysOpen.
type TradingCalendar struct {
	Calendar   *calendar.Calendar
	AlwaysOpen bool
	Fallback   bool
	Timezone   *time.Location
}

// -----------------------------------------------------------------------------

// cryptoPlatforms trade 24/7; no calendar applies.
var cryptoPlatforms = map[string]bool{
	"BINANCE":  true,
	"COINBASE": true,
	"KRAKEN":   true,
	"BYBIT":    true,
	"OKX":      true,
}

// -----------------------------------------------------------------------------

// GetCalendarForPlatform maps a platform identifier to its trading
// calendar. Stock platforms resolve to a MIC code (ISO 10383); unknown
// platforms fall back to NYSE hours.
func GetCalendarForPlatform(platform string) *TradingCalendar {
	p := strings.ToUpper(strings.TrimSpace(platform))

	if cryptoPlatforms[p] {
		return &TradingCalendar{AlwaysOpen: true}
	}

	mic := "xnys" // Default US NYSE
	switch p {
	case "NASDAQ":
		mic = "xnas"
	case "NYSE":
		mic = "xnys"
	case "LSE":
		mic = "xlon"
	case "XETRA":
		mic = "xfra"
	case "EURONEXT":
		mic = "xpar"
	case "TSE":
		mic = "xtks"
	case "HKEX":
		mic = "xhkg"
	case "ASX":
		mic = "xasx"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		// Fallback to xnys if not found
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 NY).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC // Worst case
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}

	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := t.Weekday()
		if weekday == time.Saturday || weekday == time.Sunday {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 NY Time
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}
