package models

import "time"

// -----------------------------------------------------------------------------
// Session State
// -----------------------------------------------------------------------------

// Session lifecycle states.
const (
	SessionActive  = "active"
	SessionStopped = "stopped"
)

// MSession is one subscriber's live signal stream for a single
// (symbol, timeframe) pair. Mutated only by the session manager.
type MSession struct {
	ID               string           `json:"id"`
	ChatID           string           `json:"chat_id"`
	Symbol           string           `json:"symbol"`
	TimeframeSeconds int64            `json:"timeframe_seconds"`
	Status           string           `json:"status"` // active / stopped
	StartedAt        time.Time        `json:"started_at"`
	LastSignalAt     *time.Time       `json:"last_signal_at,omitempty"`
	Options          *MSessionOptions `json:"options,omitempty"`
}

// -----------------------------------------------------------------------------
// Session Options
// -----------------------------------------------------------------------------

// MSessionOptions carries per-session overrides. All fields are optional;
// absence means the engine defaults apply.
type MSessionOptions struct {
	EnabledIndicators   []string           `json:"enabled_indicators,omitempty"`
	CustomWeights       map[string]float64 `json:"custom_weights,omitempty"`
	VolatilityThreshold *float64           `json:"volatility_threshold,omitempty"`
}

// -----------------------------------------------------------------------------

// IndicatorEnabled reports whether a vote producer name passes the
// per-session whitelist. An absent whitelist enables everything.
func (o *MSessionOptions) IndicatorEnabled(name string) bool {
	if o == nil || len(o.EnabledIndicators) == 0 {
		return true
	}
	for _, n := range o.EnabledIndicators {
		if n == name {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// WeightFor returns the custom multiplier for a producer name, or the
// provided default when no override exists.
func (o *MSessionOptions) WeightFor(name string, def float64) float64 {
	if o == nil || o.CustomWeights == nil {
		return def
	}
	if w, ok := o.CustomWeights[name]; ok {
		return w
	}
	return def
}
