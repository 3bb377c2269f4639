package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/src/aggregator"
	"signal-engine/src/analysis"
	"signal-engine/src/helpers"
	"signal-engine/src/logger"
	"signal-engine/src/models"
	"signal-engine/src/signal"
	"signal-engine/src/utils"
)

// -----------------------------------------------------------------------------
// Mock feed client
// -----------------------------------------------------------------------------

type mockFeed struct {
	mu               sync.Mutex
	history          []models.MCandle
	historyErr       error
	fetchCalls       int
	subscribeCalls   int
	unsubscribeCalls int
	handlers         map[string]map[string]func(models.MTick)
	onConnected      []func()
	onDisconnected   []func()
}

func newMockFeed(history []models.MCandle) *mockFeed {
	return &mockFeed{
		history:  history,
		handlers: make(map[string]map[string]func(models.MTick)),
	}
}

func (f *mockFeed) Connect(ctx context.Context) error    { return nil }
func (f *mockFeed) Close() error                         { return nil }
func (f *mockFeed) IsConnected() bool                    { return true }
func (f *mockFeed) OnSymbolError(fn func(string, error)) {}

func (f *mockFeed) OnDisconnected(fn func()) {
	f.mu.Lock()
	f.onDisconnected = append(f.onDisconnected, fn)
	f.mu.Unlock()
}

func (f *mockFeed) OnConnected(fn func()) {
	f.mu.Lock()
	f.onConnected = append(f.onConnected, fn)
	f.mu.Unlock()
}

func (f *mockFeed) FetchCandleHistory(ctx context.Context, symbol string, timeframeSeconds int64, count int) ([]models.MCandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	out := make([]models.MCandle, len(f.history))
	copy(out, f.history)
	return out, nil
}

func (f *mockFeed) SubscribeTicks(symbol, subscriberID string, handler func(models.MTick)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	if f.handlers[symbol] == nil {
		f.handlers[symbol] = make(map[string]func(models.MTick))
	}
	f.handlers[symbol][subscriberID] = handler
	return nil
}

func (f *mockFeed) UnsubscribeTicks(symbol, subscriberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribeCalls++
	delete(f.handlers[symbol], subscriberID)
	return nil
}

// emitTick pushes one tick through every registered handler for the symbol.
func (f *mockFeed) emitTick(tick models.MTick) {
	f.mu.Lock()
	handlers := make([]func(models.MTick), 0, len(f.handlers[tick.Symbol]))
	for _, h := range f.handlers[tick.Symbol] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(tick)
	}
}

// fireConnected simulates a reconnect notification.
func (f *mockFeed) fireConnected() {
	f.mu.Lock()
	callbacks := append([]func(){}, f.onConnected...)
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// fireDisconnected simulates a dropped connection.
func (f *mockFeed) fireDisconnected() {
	f.mu.Lock()
	callbacks := append([]func(){}, f.onDisconnected...)
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

// pastCandles returns n closed rising candles ending well before now, bucket
// aligned to the timeframe.
func pastCandles(n int, timeframe int64) []models.MCandle {
	end := (time.Now().Unix()/timeframe - 10) * timeframe
	candles := make([]models.MCandle, n)
	price := 100.0
	for i := range candles {
		candles[i] = models.MCandle{
			Symbol:           "R_10",
			TimeframeSeconds: timeframe,
			StartEpoch:       end - int64(n-i)*timeframe,
			Open:             price,
			High:             price + 0.1,
			Low:              price - 0.05,
			Close:            price + 0.08,
			TickCount:        20,
		}
		price += 0.1
	}
	return candles
}

func newTestManager(t *testing.T, feed *mockFeed) (*Manager, *aggregator.CandleAggregator) {
	t.Helper()
	log := logger.NewLogger("ERROR", "test")

	volCfg := models.MVolatilityConfig{
		ATRThreshold:            0.005,
		TickVolatilityThreshold: 0.003,
		TickVolatilityWindow:    10,
		MinCandlesForSignal:     50,
	}
	prediction := analysis.NewPredictionEngine(volCfg, analysis.NewIndicatorEngine(log), analysis.NewPsychologyEngine(log), log)
	signals := signal.NewSignalEngine(models.MSignalConfig{MinConfidence: 60}, volCfg, prediction, log)
	agg := aggregator.NewCandleAggregator(500, log)

	cfg := models.MSignalConfig{
		MinConfidence:   60,
		PreCloseSeconds: 4,
		HistoryCandles:  60,
		WindowCapacity:  100,
	}
	return NewManager(cfg, feed, agg, signals, utils.NewMarketGate(log), log), agg
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

func TestStartSessionRejectsUnknownSymbol(t *testing.T) {
	m, _ := newTestManager(t, newMockFeed(nil))

	_, err := m.StartSession(context.Background(), "", "", "NOT_A_SYMBOL", 60, nil)
	var verr *helpers.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, m.GetActiveSessionsCount())
}

func TestStartSessionRejectsUnsupportedTimeframe(t *testing.T) {
	m, _ := newTestManager(t, newMockFeed(nil))

	_, err := m.StartSession(context.Background(), "", "", "R_10", 61, nil)
	var verr *helpers.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestStartSessionRejectsDuplicateID(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, _ := newTestManager(t, feed)

	_, err := m.StartSession(context.Background(), "dup", "", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession("dup")

	_, err = m.StartSession(context.Background(), "dup", "", "R_10", 60, nil)
	var cerr *helpers.SessionConflictError
	require.ErrorAs(t, err, &cerr)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

func TestStartSessionPrimesWindowAndRoutesTicks(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, agg := newTestManager(t, feed)

	session, err := m.StartSession(context.Background(), "", "chat-7", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession(session.ID)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.Len(t, agg.GetClosedCandles("R_10", 60), 60)
	assert.Equal(t, 1, feed.subscribeCalls)

	got, ok := m.GetSession(session.ID)
	require.True(t, ok)
	assert.Equal(t, "R_10", got.Symbol)

	byChat, ok := m.GetSessionByChatID("chat-7")
	require.True(t, ok)
	assert.Equal(t, session.ID, byChat.ID)

	// A subscribed tick flows into the aggregator as a forming candle.
	now := time.Now().Unix()
	feed.emitTick(models.MTick{Symbol: "R_10", Price: 106, Epoch: now})
	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, now/60*60, forming.StartEpoch)
}

func TestStartSessionRollsBackOnHistoryFailure(t *testing.T) {
	feed := newMockFeed(nil)
	feed.historyErr = helpers.NewFeedUnavailable("no connection", nil)
	m, _ := newTestManager(t, feed)

	_, err := m.StartSession(context.Background(), "s1", "", "R_10", 60, nil)
	require.Error(t, err)
	assert.Zero(t, m.GetActiveSessionsCount())

	// The id is free again once the failed start rolled back.
	feed.mu.Lock()
	feed.historyErr = nil
	feed.history = pastCandles(60, 60)
	feed.mu.Unlock()

	_, err = m.StartSession(context.Background(), "s1", "", "R_10", 60, nil)
	require.NoError(t, err)
	m.StopSession("s1")
}

func TestStopSession(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, agg := newTestManager(t, feed)

	var stoppedMu sync.Mutex
	var stopped []models.MSession
	m.OnSessionStopped(func(s models.MSession) {
		stoppedMu.Lock()
		stopped = append(stopped, s)
		stoppedMu.Unlock()
	})

	session, err := m.StartSession(context.Background(), "", "", "R_10", 60, nil)
	require.NoError(t, err)

	out, err := m.StopSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStopped, out.Status)
	assert.Equal(t, 1, feed.unsubscribeCalls)
	assert.Empty(t, agg.GetClosedCandles("R_10", 60))

	_, ok := m.GetSession(session.ID)
	assert.False(t, ok)

	stoppedMu.Lock()
	require.Len(t, stopped, 1)
	assert.Equal(t, session.ID, stopped[0].ID)
	stoppedMu.Unlock()

	_, err = m.StopSession(session.ID)
	var verr *helpers.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStopSessionKeepsSharedWindow(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, agg := newTestManager(t, feed)

	_, err := m.StartSession(context.Background(), "a", "", "R_10", 60, nil)
	require.NoError(t, err)
	_, err = m.StartSession(context.Background(), "b", "", "R_10", 60, nil)
	require.NoError(t, err)

	_, err = m.StopSession("a")
	require.NoError(t, err)
	assert.Len(t, agg.GetClosedCandles("R_10", 60), 60, "window survives while session b needs it")

	_, err = m.StopSession("b")
	require.NoError(t, err)
	assert.Empty(t, agg.GetClosedCandles("R_10", 60))
}

// -----------------------------------------------------------------------------
// Tick routing
// -----------------------------------------------------------------------------

func TestSharedWindowCountsEachTickOnce(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, agg := newTestManager(t, feed)

	_, err := m.StartSession(context.Background(), "a", "", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession("a")
	_, err = m.StartSession(context.Background(), "b", "", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession("b")

	// Two sessions on the same window share one feed subscription, so a tick
	// must land in the window exactly once.
	assert.Equal(t, 1, feed.subscribeCalls)

	now := time.Now().Unix()
	feed.emitTick(models.MTick{Symbol: "R_10", Price: 106, Epoch: now})

	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, 1, forming.TickCount)
}

func TestSymbolRouteFansOutToEveryTimeframe(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, agg := newTestManager(t, feed)

	_, err := m.StartSession(context.Background(), "m1", "", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession("m1")
	_, err = m.StartSession(context.Background(), "m5", "", "R_10", 300, nil)
	require.NoError(t, err)

	// One subscription per symbol feeds both timeframe windows.
	assert.Equal(t, 1, feed.subscribeCalls)

	now := time.Now().Unix()
	feed.emitTick(models.MTick{Symbol: "R_10", Price: 106, Epoch: now})

	for _, tf := range []int64{60, 300} {
		forming := agg.GetFormingCandle("R_10", tf)
		require.NotNil(t, forming, "timeframe %d", tf)
		assert.Equal(t, 1, forming.TickCount, "timeframe %d", tf)
	}

	// Dropping one timeframe keeps the subscription for the other.
	_, err = m.StopSession("m5")
	require.NoError(t, err)
	assert.Equal(t, 0, feed.unsubscribeCalls)

	feed.emitTick(models.MTick{Symbol: "R_10", Price: 107, Epoch: now + 1})
	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, 2, forming.TickCount)
}

// -----------------------------------------------------------------------------
// Lifecycle events
// -----------------------------------------------------------------------------

func TestSessionStartedListenerFires(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, _ := newTestManager(t, feed)

	started := make(chan models.MSession, 1)
	m.OnSessionStarted(func(s models.MSession) {
		started <- s
	})

	session, err := m.StartSession(context.Background(), "", "chat-9", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession(session.ID)

	select {
	case got := <-started:
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, models.SessionActive, got.Status)
	default:
		t.Fatal("no session-started event")
	}
}

func TestFeedDisconnectListenerFires(t *testing.T) {
	feed := newMockFeed(nil)
	m, _ := newTestManager(t, feed)

	fired := 0
	m.OnFeedDisconnected(func() { fired++ })

	feed.fireDisconnected()
	assert.Equal(t, 1, fired)
}

// -----------------------------------------------------------------------------
// Scheduler
// -----------------------------------------------------------------------------

func TestSchedulerEmitsForPastDeadline(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, _ := newTestManager(t, feed)

	signals := make(chan models.MSignalResult, 4)
	m.OnPreCloseSignal(func(s models.MSession, r models.MSignalResult) {
		signals <- r
	})

	session, err := m.StartSession(context.Background(), "", "", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession(session.ID)

	// A tick two buckets in the past forms a candle whose pre-close deadline
	// already passed, so the scheduler fires on its next poll.
	tickEpoch := time.Now().Unix() - 120
	feed.emitTick(models.MTick{Symbol: "R_10", Price: 106, Epoch: tickEpoch})

	select {
	case result := <-signals:
		assert.Equal(t, session.ID, result.SessionID)
		assert.Equal(t, "R_10", result.Symbol)
		assert.Equal(t, tickEpoch/60*60+60, result.CandleCloseTime)
	case <-time.After(3 * time.Second):
		t.Fatal("no signal emitted for a past pre-close deadline")
	}

	// Same forming candle never produces a second signal.
	select {
	case <-signals:
		t.Fatal("duplicate signal for one forming candle")
	case <-time.After(1500 * time.Millisecond):
	}
}

// -----------------------------------------------------------------------------
// Reconnect
// -----------------------------------------------------------------------------

func TestFeedReconnectReprimesSessions(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, agg := newTestManager(t, feed)

	session, err := m.StartSession(context.Background(), "", "", "R_10", 60, nil)
	require.NoError(t, err)
	defer m.StopSession(session.ID)

	// The provider replays a longer history after the reconnect.
	feed.mu.Lock()
	feed.history = pastCandles(80, 60)
	feed.mu.Unlock()

	feed.fireConnected()
	assert.Len(t, agg.GetClosedCandles("R_10", 60), 80)
}

// -----------------------------------------------------------------------------
// Debug signal
// -----------------------------------------------------------------------------

func TestGetDebugSignalWithoutSession(t *testing.T) {
	feed := newMockFeed(pastCandles(60, 60))
	m, _ := newTestManager(t, feed)

	result, err := m.GetDebugSignal(context.Background(), "R_10", 60)
	require.NoError(t, err)
	assert.Equal(t, "debug", result.SessionID)
	assert.Equal(t, 60, result.ClosedCandlesCount)

	_, err = m.GetDebugSignal(context.Background(), "nope", 60)
	var verr *helpers.ValidationError
	assert.ErrorAs(t, err, &verr)
}
