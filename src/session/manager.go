package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"signal-engine/src/aggregator"
	"signal-engine/src/helpers"
	"signal-engine/src/interfaces"
	"signal-engine/src/logger"
	"signal-engine/src/models"
	"signal-engine/src/signal"
	"signal-engine/src/utils"
)

// -----------------------------------------------------------------------------
// Manager owns every live session: validation on start, the per-session
// pre-close scheduler, tick routing into the aggregator, and re-priming
// after feed reconnects. Signals fan out to registered listeners; the
// persistence sink is just one more listener.
// -----------------------------------------------------------------------------

type Manager struct {
	Logger     *logger.Logger
	Feed       interfaces.IFeedClient
	Aggregator *aggregator.CandleAggregator
	Signals    *signal.SignalEngine
	Gate       *utils.MarketGate

	historyCandles  int
	windowCapacity  int
	preCloseSeconds int64

	mu       sync.RWMutex
	sessions map[string]*sessionState
	byChat   map[string]string

	// Tick routing refcounts: symbol -> timeframe -> session count. One feed
	// subscription per symbol feeds every timeframe window exactly once, no
	// matter how many sessions share it.
	routeMu sync.Mutex
	routes  map[string]map[int64]int

	listenerMu         sync.Mutex
	onPreCloseSignal   []func(models.MSession, models.MSignalResult)
	onSessionStarted   []func(models.MSession)
	onSessionStopped   []func(models.MSession)
	onFeedDisconnected []func()
}

type sessionState struct {
	mu      sync.Mutex
	session models.MSession
	cancel  context.CancelFunc

	// Start epoch of the forming candle the last signal was emitted for.
	lastSignalCandleTimestamp int64
}

// -----------------------------------------------------------------------------

func NewManager(cfg models.MSignalConfig, feed interfaces.IFeedClient, agg *aggregator.CandleAggregator, signals *signal.SignalEngine, gate *utils.MarketGate, log *logger.Logger) *Manager {
	m := &Manager{
		Logger:          log,
		Feed:            feed,
		Aggregator:      agg,
		Signals:         signals,
		Gate:            gate,
		historyCandles:  cfg.HistoryCandles,
		windowCapacity:  cfg.WindowCapacity,
		preCloseSeconds: int64(cfg.PreCloseSeconds),
		sessions:        make(map[string]*sessionState),
		byChat:          make(map[string]string),
		routes:          make(map[string]map[int64]int),
	}

	feed.OnConnected(m.handleFeedConnected)
	feed.OnDisconnected(func() {
		log.Warning("Feed dropped; schedulers keep firing on cached candles")
		m.fireFeedDisconnected()
	})
	feed.OnSymbolError(func(symbol string, err error) {
		log.Error("Feed rejected stream for %s: %v", symbol, err)
	})
	return m
}

// -----------------------------------------------------------------------------

// OnPreCloseSignal registers a listener for every emitted signal.
func (m *Manager) OnPreCloseSignal(fn func(models.MSession, models.MSignalResult)) {
	m.listenerMu.Lock()
	m.onPreCloseSignal = append(m.onPreCloseSignal, fn)
	m.listenerMu.Unlock()
}

// -----------------------------------------------------------------------------

// OnSessionStarted registers a listener for session creation events.
func (m *Manager) OnSessionStarted(fn func(models.MSession)) {
	m.listenerMu.Lock()
	m.onSessionStarted = append(m.onSessionStarted, fn)
	m.listenerMu.Unlock()
}

// -----------------------------------------------------------------------------

// OnSessionStopped registers a listener for session teardown events.
func (m *Manager) OnSessionStopped(fn func(models.MSession)) {
	m.listenerMu.Lock()
	m.onSessionStopped = append(m.onSessionStopped, fn)
	m.listenerMu.Unlock()
}

// -----------------------------------------------------------------------------

// OnFeedDisconnected registers a listener for feed drops.
func (m *Manager) OnFeedDisconnected(fn func()) {
	m.listenerMu.Lock()
	m.onFeedDisconnected = append(m.onFeedDisconnected, fn)
	m.listenerMu.Unlock()
}

// -----------------------------------------------------------------------------

// StartSession validates, primes the candle window from history, hooks the
// tick stream and arms the scheduler. The id may be empty, in which case a
// fresh one is generated.
func (m *Manager) StartSession(ctx context.Context, id, chatID, symbol string, timeframeSeconds int64, options *models.MSessionOptions) (models.MSession, error) {
	if id == "" {
		id = uuid.NewString()
	}

	// 1. Validation
	if _, ok := utils.LookupAsset(symbol); !ok {
		return models.MSession{}, helpers.NewValidation(fmt.Sprintf("unknown symbol '%s'", symbol))
	}
	if !utils.IsSupportedTimeframe(timeframeSeconds) {
		return models.MSession{}, helpers.NewValidation(fmt.Sprintf("unsupported timeframe %ds", timeframeSeconds))
	}
	if !m.Gate.IsTradeable(symbol, time.Now()) {
		return models.MSession{}, helpers.NewValidation(fmt.Sprintf("market closed for '%s'", symbol))
	}

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return models.MSession{}, helpers.NewSessionConflict(id)
	}
	// Reserve the id before the slow history fetch.
	m.sessions[id] = nil
	m.mu.Unlock()

	rollback := func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}

	// 2. History priming
	if err := m.primeWindow(ctx, symbol, timeframeSeconds); err != nil {
		rollback()
		return models.MSession{}, err
	}

	// 3. Tick routing
	if err := m.acquireTickRoute(symbol, timeframeSeconds); err != nil {
		rollback()
		return models.MSession{}, err
	}

	// 4. Record and arm
	schedCtx, cancel := context.WithCancel(context.Background())
	st := &sessionState{
		session: models.MSession{
			ID:               id,
			ChatID:           chatID,
			Symbol:           symbol,
			TimeframeSeconds: timeframeSeconds,
			Status:           models.SessionActive,
			StartedAt:        time.Now().UTC(),
			Options:          options,
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.sessions[id] = st
	if chatID != "" {
		m.byChat[chatID] = id
	}
	m.mu.Unlock()

	go m.runScheduler(schedCtx, st)

	m.Logger.Info("Session %s started: %s/%ds for chat '%s'", id, symbol, timeframeSeconds, chatID)
	m.fireSessionStarted(st.session)
	return st.session, nil
}

// -----------------------------------------------------------------------------

// StopSession cancels the scheduler, detaches from the feed and drops the
// candle window unless another session still needs it.
func (m *Manager) StopSession(id string) (models.MSession, error) {
	m.mu.Lock()
	st, exists := m.sessions[id]
	if !exists || st == nil {
		m.mu.Unlock()
		return models.MSession{}, helpers.NewValidation(fmt.Sprintf("session '%s' not found", id))
	}
	delete(m.sessions, id)
	if st.session.ChatID != "" {
		delete(m.byChat, st.session.ChatID)
	}

	symbol := st.session.Symbol
	timeframe := st.session.TimeframeSeconds
	windowShared, symbolShared := false, false
	for _, other := range m.sessions {
		if other == nil {
			continue
		}
		if other.session.Symbol == symbol {
			symbolShared = true
			if other.session.TimeframeSeconds == timeframe {
				windowShared = true
			}
		}
	}
	m.mu.Unlock()

	st.cancel()
	m.releaseTickRoute(symbol, timeframe)
	if !windowShared {
		m.Aggregator.Cleanup(symbol, timeframe)
	}
	if !symbolShared {
		m.Signals.Prediction.ForgetSymbol(symbol)
	}

	st.mu.Lock()
	st.session.Status = models.SessionStopped
	stopped := st.session
	st.mu.Unlock()

	m.Logger.Info("Session %s stopped", id)
	m.fireSessionStopped(stopped)
	return stopped, nil
}

// -----------------------------------------------------------------------------

// GetSession returns a snapshot of one session.
func (m *Manager) GetSession(id string) (models.MSession, bool) {
	m.mu.RLock()
	st, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || st == nil {
		return models.MSession{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session, true
}

// -----------------------------------------------------------------------------

// GetSessionByChatID resolves the reverse index.
func (m *Manager) GetSessionByChatID(chatID string) (models.MSession, bool) {
	m.mu.RLock()
	id, ok := m.byChat[chatID]
	m.mu.RUnlock()
	if !ok {
		return models.MSession{}, false
	}
	return m.GetSession(id)
}

// -----------------------------------------------------------------------------

// ListSessions returns snapshots of every active session.
func (m *Manager) ListSessions() []models.MSession {
	m.mu.RLock()
	states := make([]*sessionState, 0, len(m.sessions))
	for _, st := range m.sessions {
		if st != nil {
			states = append(states, st)
		}
	}
	m.mu.RUnlock()

	sessions := make([]models.MSession, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		sessions = append(sessions, st.session)
		st.mu.Unlock()
	}
	return sessions
}

// -----------------------------------------------------------------------------

// GetActiveSessionsCount returns the number of live sessions.
func (m *Manager) GetActiveSessionsCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, st := range m.sessions {
		if st != nil {
			count++
		}
	}
	return count
}

// -----------------------------------------------------------------------------

// GetSessionCandles is a passthrough to the aggregator window.
func (m *Manager) GetSessionCandles(id string, limit int) ([]models.MCandle, *models.MCandle, error) {
	session, ok := m.GetSession(id)
	if !ok {
		return nil, nil, helpers.NewValidation(fmt.Sprintf("session '%s' not found", id))
	}

	closed := m.Aggregator.GetClosedCandles(session.Symbol, session.TimeframeSeconds)
	if limit > 0 && len(closed) > limit {
		closed = closed[len(closed)-limit:]
	}
	return closed, m.Aggregator.GetFormingCandle(session.Symbol, session.TimeframeSeconds), nil
}

// -----------------------------------------------------------------------------

// GetDebugSignal runs the signal pipeline on demand, with no session and no
// scheduling. When no window exists yet, history is fetched ad hoc.
func (m *Manager) GetDebugSignal(ctx context.Context, symbol string, timeframeSeconds int64) (models.MSignalResult, error) {
	if _, ok := utils.LookupAsset(symbol); !ok {
		return models.MSignalResult{}, helpers.NewValidation(fmt.Sprintf("unknown symbol '%s'", symbol))
	}
	if !utils.IsSupportedTimeframe(timeframeSeconds) {
		return models.MSignalResult{}, helpers.NewValidation(fmt.Sprintf("unsupported timeframe %ds", timeframeSeconds))
	}

	closed := m.Aggregator.GetClosedCandles(symbol, timeframeSeconds)
	forming := m.Aggregator.GetFormingCandle(symbol, timeframeSeconds)
	if len(closed) == 0 {
		history, err := m.Feed.FetchCandleHistory(ctx, symbol, timeframeSeconds, m.historyCandles)
		if err != nil {
			return models.MSignalResult{}, err
		}
		closed = history
	}

	closeTime := time.Now().Unix()/timeframeSeconds*timeframeSeconds + timeframeSeconds
	if forming != nil {
		closeTime = forming.EndEpoch()
	}
	return m.Signals.GenerateSignal("debug", symbol, timeframeSeconds, closed, forming, closeTime, nil), nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// routeSubscriberID is the feed subscriber id for a symbol's shared route.
const routeSubscriberID = "tick-router"

// acquireTickRoute registers a session's interest in (symbol, timeframe).
// The first timeframe for a symbol opens the single feed subscription; each
// tick then feeds the prediction window once and every interested timeframe
// window once, independent of how many sessions share them.
func (m *Manager) acquireTickRoute(symbol string, timeframeSeconds int64) error {
	m.routeMu.Lock()
	timeframes, exists := m.routes[symbol]
	if !exists {
		timeframes = make(map[int64]int)
		m.routes[symbol] = timeframes
	}
	timeframes[timeframeSeconds]++
	m.routeMu.Unlock()

	if exists {
		return nil
	}
	if err := m.Feed.SubscribeTicks(symbol, routeSubscriberID, m.makeSymbolTickHandler(symbol)); err != nil {
		m.releaseTickRoute(symbol, timeframeSeconds)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// releaseTickRoute drops one session's interest; the feed subscription goes
// away with the symbol's last timeframe.
func (m *Manager) releaseTickRoute(symbol string, timeframeSeconds int64) {
	m.routeMu.Lock()
	timeframes := m.routes[symbol]
	if timeframes == nil {
		m.routeMu.Unlock()
		return
	}
	timeframes[timeframeSeconds]--
	if timeframes[timeframeSeconds] <= 0 {
		delete(timeframes, timeframeSeconds)
	}
	last := len(timeframes) == 0
	if last {
		delete(m.routes, symbol)
	}
	m.routeMu.Unlock()

	if last {
		if err := m.Feed.UnsubscribeTicks(symbol, routeSubscriberID); err != nil {
			m.Logger.Warning("Unsubscribe failed for %s: %v", symbol, err)
		}
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) makeSymbolTickHandler(symbol string) func(models.MTick) {
	return func(tick models.MTick) {
		m.Signals.Prediction.ObserveTick(tick)

		m.routeMu.Lock()
		timeframes := make([]int64, 0, len(m.routes[symbol]))
		for tf := range m.routes[symbol] {
			timeframes = append(timeframes, tf)
		}
		m.routeMu.Unlock()

		for _, tf := range timeframes {
			m.Aggregator.ProcessTick(tick, tf)
		}
	}
}

// -----------------------------------------------------------------------------

// primeWindow fetches history and seeds the aggregator, retrying a transient
// feed failure a few times before giving up.
func (m *Manager) primeWindow(ctx context.Context, symbol string, timeframeSeconds int64) error {
	var history []models.MCandle
	err := helpers.RetryWithBackoff(m.Logger, fmt.Sprintf("history fetch %s/%ds", symbol, timeframeSeconds), 3, time.Second, func() error {
		var fetchErr error
		history, fetchErr = m.Feed.FetchCandleHistory(ctx, symbol, timeframeSeconds, m.historyCandles)
		return fetchErr
	})
	if err != nil {
		return err
	}

	m.Aggregator.Initialize(symbol, timeframeSeconds, history, m.windowCapacity)
	return nil
}

// -----------------------------------------------------------------------------

// handleFeedConnected re-primes every active session after a reconnect. The
// feed client has already re-issued the protocol subscriptions.
func (m *Manager) handleFeedConnected() {
	sessions := m.ListSessions()
	if len(sessions) == 0 {
		return
	}

	m.Logger.Info("Feed connected; re-priming %d session(s)", len(sessions))
	for _, s := range sessions {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.primeWindow(ctx, s.Symbol, s.TimeframeSeconds); err != nil {
			m.Logger.Error("Re-prime failed for session %s: %v", s.ID, err)
		}
		cancel()
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) fireSessionStarted(session models.MSession) {
	m.listenerMu.Lock()
	listeners := append([]func(models.MSession){}, m.onSessionStarted...)
	m.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(session)
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) fireSessionStopped(session models.MSession) {
	m.listenerMu.Lock()
	listeners := append([]func(models.MSession){}, m.onSessionStopped...)
	m.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(session)
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) fireFeedDisconnected() {
	m.listenerMu.Lock()
	listeners := append([]func(){}, m.onFeedDisconnected...)
	m.listenerMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
