package utils

import (
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// CandleBuffer is a fixed-size circular buffer of closed candles for one
// (symbol, timeframe) pair. True ring buffer - no resizing on append!
// -----------------------------------------------------------------------------

type CandleBuffer struct {
	// Data storage as 2D slice (rows x features)
	data      [][models.CB_NUM_FEATURES]float64
	symbol    string
	timeframe int64
	capacity  int
	index     int // Next write position
	size      int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewCandleBuffer creates a new buffer with fixed capacity
func NewCandleBuffer(symbol string, timeframeSeconds int64, capacity int) *CandleBuffer {
	if capacity <= 0 {
		capacity = 500 // Default window size
	}

	return &CandleBuffer{
		data:      make([][models.CB_NUM_FEATURES]float64, capacity),
		symbol:    symbol,
		timeframe: timeframeSeconds,
		capacity:  capacity,
		index:     0,
		size:      0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a closed candle (Strict Type)
func (cb *CandleBuffer) Append(candle models.MCandle) {
	cb.data[cb.index] = [models.CB_NUM_FEATURES]float64{
		float64(candle.StartEpoch),
		candle.Open,
		candle.High,
		candle.Low,
		candle.Close,
		float64(candle.TickCount),
	}

	cb.index = (cb.index + 1) % cb.capacity

	// Update size (never exceeds capacity)
	if cb.size < cb.capacity {
		cb.size++
	}
}

// -----------------------------------------------------------------------------

// GetAll returns all candles in insertion order (oldest to newest)
func (cb *CandleBuffer) GetAll() []models.MCandle {
	if cb.size == 0 {
		return []models.MCandle{}
	}

	result := make([]models.MCandle, cb.size)

	// Calculate start index (oldest element)
	var startIdx int
	if cb.size == cb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = cb.index
	} else {
		// Buffer not full, oldest is at index 0
		startIdx = 0
	}

	// Extract in order
	for i := 0; i < cb.size; i++ {
		idx := (startIdx + i) % cb.capacity
		result[i] = cb.rowToCandle(cb.data[idx])
	}

	return result
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest candles (oldest to newest)
func (cb *CandleBuffer) GetLatest(n int) []models.MCandle {
	if cb.size == 0 || n <= 0 {
		return []models.MCandle{}
	}

	count := n
	if n > cb.size {
		count = cb.size
	}

	result := make([]models.MCandle, count)

	// Latest data is at index-1
	startIdx := (cb.index - count + cb.capacity) % cb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % cb.capacity
		result[i] = cb.rowToCandle(cb.data[idx])
	}

	return result
}

// -----------------------------------------------------------------------------

// LastStartEpoch returns the newest candle's start epoch, or 0 when empty.
func (cb *CandleBuffer) LastStartEpoch() int64 {
	if cb.size == 0 {
		return 0
	}
	idx := (cb.index - 1 + cb.capacity) % cb.capacity
	return int64(cb.data[idx][models.CB_IDX_START])
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (cb *CandleBuffer) Size() int {
	return cb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (cb *CandleBuffer) Capacity() int {
	return cb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (cb *CandleBuffer) IsFull() bool {
	return cb.size == cb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (cb *CandleBuffer) Clear() {
	cb.index = 0
	cb.size = 0
}

// -----------------------------------------------------------------------------

func (cb *CandleBuffer) rowToCandle(row [models.CB_NUM_FEATURES]float64) models.MCandle {
	return models.MCandle{
		Symbol:           cb.symbol,
		TimeframeSeconds: cb.timeframe,
		StartEpoch:       int64(row[models.CB_IDX_START]),
		Open:             row[models.CB_IDX_OPEN],
		High:             row[models.CB_IDX_HIGH],
		Low:              row[models.CB_IDX_LOW],
		Close:            row[models.CB_IDX_CLOSE],
		TickCount:        int(row[models.CB_IDX_TICK_COUNT]),
		IsForming:        false,
	}
}
