package utils

import (
	"log"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar gates forex assets on their reference market's trading
// calendar using scmhub/calendar. Synthetic assets are always open.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

func GetCalendar(asset Asset) *TradingCalendar {
	if asset.Class == AssetSynthetic {
		// Synthetics never close; represented by a nil calendar, no fallback.
		return &TradingCalendar{}
	}

	mic := asset.MIC
	if mic == "" {
		mic = "xnys"
	}

	// scmhub/calendar.GetCalendar returns a calendar by MIC (ISO 10383)
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// IsTradingDay reports whether the underlying market trades on this date.
func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Calendar == nil && !tc.Fallback {
		return true // synthetic
	}

	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenAt checks whether the asset is tradeable at a specific instant.
// Forex pairs trade around the clock on business days of their reference
// market; intraday open/close hours do not apply to them.
func (tc *TradingCalendar) IsOpenAt(t time.Time) bool {
	if tc.Calendar == nil && !tc.Fallback {
		return true // synthetic
	}
	return tc.IsTradingDay(t)
}
