package utils

import (
	"sync"
	"time"

	"signal-engine/src/logger"
)

// MarketGate answers "is this symbol tradeable right now" for the session
// manager, caching one TradingCalendar per catalog asset.
type MarketGate struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketGate(l *logger.Logger) *MarketGate {
	mg := &MarketGate{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	for _, asset := range AllAssets() {
		mg.Calendars[asset.Symbol] = GetCalendar(asset)
	}
	mg.Logger.Info("MarketGate: mapped %d assets to calendars", len(mg.Calendars))
	return mg
}

// -----------------------------------------------------------------------------

// IsTradeable reports whether the symbol's market is open at t.
// Unknown symbols are rejected.
func (mg *MarketGate) IsTradeable(symbol string, t time.Time) bool {
	mg.mu.RLock()
	cal, ok := mg.Calendars[symbol]
	mg.mu.RUnlock()

	if !ok {
		return false
	}
	return cal.IsOpenAt(t)
}
