package session

import (
	"context"
	"time"

	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// Pre-Close Scheduler
//
// One goroutine per session. Each forming candle gets at most one signal,
// emitted preCloseSeconds before the candle closes. A late arm (startup,
// reconnect) fires immediately if the deadline already passed and no signal
// went out for this forming candle yet.
// -----------------------------------------------------------------------------

const formingPollInterval = time.Second

func (m *Manager) runScheduler(ctx context.Context, st *sessionState) {
	st.mu.Lock()
	symbol := st.session.Symbol
	timeframe := st.session.TimeframeSeconds
	sessionID := st.session.ID
	st.mu.Unlock()

	for {
		forming := m.Aggregator.GetFormingCandle(symbol, timeframe)

		// No ticks yet: poll until the first forming candle appears.
		if forming == nil {
			if !sleepOrDone(ctx, formingPollInterval) {
				return
			}
			continue
		}

		candleCloseTime := forming.EndEpoch()
		deadline := candleCloseTime - m.preCloseSeconds

		st.mu.Lock()
		alreadyEmitted := st.lastSignalCandleTimestamp == forming.StartEpoch
		st.mu.Unlock()

		if alreadyEmitted {
			// Wait out the remainder of this candle, then re-check.
			wait := time.Until(time.Unix(candleCloseTime, 0))
			if wait < formingPollInterval {
				wait = formingPollInterval
			}
			if !sleepOrDone(ctx, wait) {
				return
			}
			continue
		}

		if wait := time.Until(time.Unix(deadline, 0)); wait > 0 {
			if !sleepOrDone(ctx, wait) {
				return
			}
			// The forming candle may have rolled over while we slept.
			continue
		}

		m.emitSignal(ctx, st, sessionID, symbol, timeframe, forming.StartEpoch, candleCloseTime)
	}
}

// -----------------------------------------------------------------------------

// emitSignal runs the signal pipeline for one forming candle and fans the
// result out. Dedupe is by the forming candle's start epoch.
func (m *Manager) emitSignal(ctx context.Context, st *sessionState, sessionID, symbol string, timeframe, formingStart, candleCloseTime int64) {
	st.mu.Lock()
	if st.lastSignalCandleTimestamp == formingStart {
		st.mu.Unlock()
		return
	}
	st.lastSignalCandleTimestamp = formingStart
	options := st.session.Options
	st.mu.Unlock()

	closed := m.Aggregator.GetClosedCandles(symbol, timeframe)
	forming := m.Aggregator.GetFormingCandle(symbol, timeframe)

	result := m.Signals.GenerateSignal(sessionID, symbol, timeframe, closed, forming, candleCloseTime, options)

	st.mu.Lock()
	now := time.Now().UTC()
	st.session.LastSignalAt = &now
	session := st.session
	st.mu.Unlock()

	m.Logger.Info("Signal %s for %s/%ds: %s (%d%%, %d votes)",
		sessionID, symbol, timeframe, result.Direction, result.Confidence, len(result.Votes))

	if ctx.Err() != nil {
		return
	}
	m.firePreCloseSignal(session, result)
}

// -----------------------------------------------------------------------------

func (m *Manager) firePreCloseSignal(session models.MSession, result models.MSignalResult) {
	m.listenerMu.Lock()
	listeners := append([]func(models.MSession, models.MSignalResult){}, m.onPreCloseSignal...)
	m.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(session, result)
	}
}

// -----------------------------------------------------------------------------

// sleepOrDone waits for the duration, returning false when the context is
// cancelled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
