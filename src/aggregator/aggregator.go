package aggregator

import (
	"sync"
	"sync/atomic"

	"signal-engine/src/logger"
	"signal-engine/src/models"
	"signal-engine/src/utils"
)

// -----------------------------------------------------------------------------
// CandleAggregator owns every candle window in the process. Each
// (symbol, timeframe) pair gets its own window with its own lock, so tick
// processing is serialised per pair while different pairs proceed in
// parallel. Getters hand out copies only.
// -----------------------------------------------------------------------------

type windowKey struct {
	Symbol    string
	Timeframe int64
}

type candleWindow struct {
	mu      sync.Mutex
	closed  *utils.CandleBuffer
	forming *models.MCandle
}

type CandleAggregator struct {
	Logger *logger.Logger

	mu      sync.RWMutex
	windows map[windowKey]*candleWindow

	malformedTicks atomic.Int64
	defaultCap     int
}

// -----------------------------------------------------------------------------

func NewCandleAggregator(defaultCapacity int, log *logger.Logger) *CandleAggregator {
	if defaultCapacity <= 0 {
		defaultCapacity = 500
	}
	return &CandleAggregator{
		Logger:     log,
		windows:    make(map[windowKey]*candleWindow),
		defaultCap: defaultCapacity,
	}
}

// -----------------------------------------------------------------------------

// Initialize seeds the closed-candle buffer for a pair from history and
// clears any forming candle. Existing state for the pair is replaced.
func (a *CandleAggregator) Initialize(symbol string, timeframeSeconds int64, history []models.MCandle, capacity int) {
	if capacity <= 0 {
		capacity = a.defaultCap
	}

	w := &candleWindow{
		closed: utils.NewCandleBuffer(symbol, timeframeSeconds, capacity),
	}
	for _, c := range history {
		if c.IsForming {
			continue
		}
		c.Symbol = symbol
		c.TimeframeSeconds = timeframeSeconds
		w.closed.Append(c)
	}

	a.mu.Lock()
	a.windows[windowKey{symbol, timeframeSeconds}] = w
	a.mu.Unlock()

	a.Logger.Info("Initialized window %s/%ds with %d closed candles", symbol, timeframeSeconds, w.closed.Size())
}

// -----------------------------------------------------------------------------

// ProcessTick folds one tick into the pair's window. When the tick opens a
// new bucket, the previous forming candle is closed and returned; otherwise
// the return value is nil. Malformed and out-of-order ticks are dropped.
func (a *CandleAggregator) ProcessTick(tick models.MTick, timeframeSeconds int64) *models.MCandle {
	if tick.Symbol == "" || tick.Price <= 0 || tick.Epoch <= 0 {
		a.malformedTicks.Add(1)
		a.Logger.Debug("Dropped malformed tick: %+v", tick)
		return nil
	}

	w := a.getWindow(tick.Symbol, timeframeSeconds)
	if w == nil {
		return nil
	}

	bucket := (tick.Epoch / timeframeSeconds) * timeframeSeconds

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.forming == nil {
		w.forming = newFormingCandle(tick, timeframeSeconds, bucket)
		return nil
	}

	switch {
	case bucket == w.forming.StartEpoch:
		// Same bucket: extend the forming candle.
		if tick.Price > w.forming.High {
			w.forming.High = tick.Price
		}
		if tick.Price < w.forming.Low {
			w.forming.Low = tick.Price
		}
		w.forming.Close = tick.Price
		w.forming.TickCount++
		return nil

	case bucket > w.forming.StartEpoch:
		// New bucket: close the forming candle, start a fresh one.
		// Empty buckets in between are simply skipped, never fabricated.
		closed := *w.forming
		closed.IsForming = false
		w.closed.Append(closed)
		w.forming = newFormingCandle(tick, timeframeSeconds, bucket)
		return &closed

	default:
		// Out-of-order tick: ignore.
		return nil
	}
}

// -----------------------------------------------------------------------------

// GetClosedCandles returns a snapshot of the closed candles, oldest to
// newest. Safe for concurrent use; the caller owns the returned slice.
func (a *CandleAggregator) GetClosedCandles(symbol string, timeframeSeconds int64) []models.MCandle {
	w := a.getWindow(symbol, timeframeSeconds)
	if w == nil {
		return []models.MCandle{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed.GetAll()
}

// -----------------------------------------------------------------------------

// GetFormingCandle returns a copy of the in-progress candle, or nil when no
// tick has arrived for the current bucket yet.
func (a *CandleAggregator) GetFormingCandle(symbol string, timeframeSeconds int64) *models.MCandle {
	w := a.getWindow(symbol, timeframeSeconds)
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.forming == nil {
		return nil
	}
	c := *w.forming
	return &c
}

// -----------------------------------------------------------------------------

// Cleanup removes the window for a pair entirely.
func (a *CandleAggregator) Cleanup(symbol string, timeframeSeconds int64) {
	a.mu.Lock()
	delete(a.windows, windowKey{symbol, timeframeSeconds})
	a.mu.Unlock()
}

// -----------------------------------------------------------------------------

// MalformedTickCount exposes the drop counter for observability.
func (a *CandleAggregator) MalformedTickCount() int64 {
	return a.malformedTicks.Load()
}

// -----------------------------------------------------------------------------

func (a *CandleAggregator) getWindow(symbol string, timeframeSeconds int64) *candleWindow {
	key := windowKey{symbol, timeframeSeconds}

	a.mu.RLock()
	w, ok := a.windows[key]
	a.mu.RUnlock()
	if ok {
		return w
	}

	// First tick for an uninitialised pair: create an empty window lazily.
	a.mu.Lock()
	defer a.mu.Unlock()
	if w, ok = a.windows[key]; ok {
		return w
	}
	w = &candleWindow{closed: utils.NewCandleBuffer(symbol, timeframeSeconds, a.defaultCap)}
	a.windows[key] = w
	return w
}

// -----------------------------------------------------------------------------

func newFormingCandle(tick models.MTick, timeframeSeconds, bucket int64) *models.MCandle {
	return &models.MCandle{
		Symbol:           tick.Symbol,
		TimeframeSeconds: timeframeSeconds,
		Open:             tick.Price,
		High:             tick.Price,
		Low:              tick.Price,
		Close:            tick.Price,
		StartEpoch:       bucket,
		TickCount:        1,
		IsForming:        true,
	}
}
