package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------

func newTestAggregator() *CandleAggregator {
	return NewCandleAggregator(100, logger.NewLogger("ERROR", "test"))
}

func tick(symbol string, price float64, epoch int64) models.MTick {
	return models.MTick{Symbol: symbol, Price: price, Epoch: epoch}
}

// -----------------------------------------------------------------------------

func TestProcessTickCreatesFormingCandle(t *testing.T) {
	agg := newTestAggregator()

	closed := agg.ProcessTick(tick("R_10", 100.5, 125), 60)
	assert.Nil(t, closed)

	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, int64(120), forming.StartEpoch)
	assert.Equal(t, 100.5, forming.Open)
	assert.Equal(t, 100.5, forming.High)
	assert.Equal(t, 100.5, forming.Low)
	assert.Equal(t, 100.5, forming.Close)
	assert.Equal(t, 1, forming.TickCount)
	assert.True(t, forming.IsForming)
}

// -----------------------------------------------------------------------------

func TestProcessTickExtendsSameBucket(t *testing.T) {
	agg := newTestAggregator()

	agg.ProcessTick(tick("R_10", 100, 120), 60)
	agg.ProcessTick(tick("R_10", 103, 130), 60)
	agg.ProcessTick(tick("R_10", 99, 150), 60)
	agg.ProcessTick(tick("R_10", 101, 179), 60)

	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, 100.0, forming.Open)
	assert.Equal(t, 103.0, forming.High)
	assert.Equal(t, 99.0, forming.Low)
	assert.Equal(t, 101.0, forming.Close)
	assert.Equal(t, 4, forming.TickCount)
}

// -----------------------------------------------------------------------------

func TestProcessTickClosesOnNewBucket(t *testing.T) {
	agg := newTestAggregator()

	agg.ProcessTick(tick("R_10", 100, 120), 60)
	agg.ProcessTick(tick("R_10", 102, 150), 60)

	closed := agg.ProcessTick(tick("R_10", 105, 185), 60)
	require.NotNil(t, closed)
	assert.Equal(t, int64(120), closed.StartEpoch)
	assert.Equal(t, 102.0, closed.Close)
	assert.False(t, closed.IsForming)

	window := agg.GetClosedCandles("R_10", 60)
	require.Len(t, window, 1)
	assert.Equal(t, *closed, window[0])

	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, int64(180), forming.StartEpoch)
	assert.Equal(t, 105.0, forming.Open)
}

// -----------------------------------------------------------------------------

// A tick exactly at bucket + timeframe belongs to the next bucket.
func TestProcessTickTieBreakStartsNewBucket(t *testing.T) {
	agg := newTestAggregator()

	agg.ProcessTick(tick("R_10", 100, 120), 60)
	closed := agg.ProcessTick(tick("R_10", 101, 180), 60)

	require.NotNil(t, closed)
	assert.Equal(t, int64(120), closed.StartEpoch)

	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, int64(180), forming.StartEpoch)
}

// -----------------------------------------------------------------------------

func TestProcessTickIgnoresOutOfOrder(t *testing.T) {
	agg := newTestAggregator()

	agg.ProcessTick(tick("R_10", 100, 200), 60)
	closed := agg.ProcessTick(tick("R_10", 500, 130), 60)

	assert.Nil(t, closed)
	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, int64(180), forming.StartEpoch)
	assert.Equal(t, 100.0, forming.High)
	assert.Equal(t, 1, forming.TickCount)
}

// -----------------------------------------------------------------------------

func TestProcessTickSkipsGapBuckets(t *testing.T) {
	agg := newTestAggregator()

	agg.ProcessTick(tick("R_10", 100, 120), 60)
	// Three empty buckets between 120 and 360: no synthetic candles.
	closed := agg.ProcessTick(tick("R_10", 101, 370), 60)

	require.NotNil(t, closed)
	window := agg.GetClosedCandles("R_10", 60)
	require.Len(t, window, 1)
	assert.Equal(t, int64(120), window[0].StartEpoch)

	forming := agg.GetFormingCandle("R_10", 60)
	require.NotNil(t, forming)
	assert.Equal(t, int64(360), forming.StartEpoch)
}

// -----------------------------------------------------------------------------

func TestProcessTickDropsMalformed(t *testing.T) {
	agg := newTestAggregator()

	assert.Nil(t, agg.ProcessTick(tick("", 100, 120), 60))
	assert.Nil(t, agg.ProcessTick(tick("R_10", 0, 120), 60))
	assert.Nil(t, agg.ProcessTick(tick("R_10", -1, 120), 60))
	assert.Nil(t, agg.ProcessTick(tick("R_10", 100, 0), 60))

	assert.Equal(t, int64(4), agg.MalformedTickCount())
	assert.Nil(t, agg.GetFormingCandle("R_10", 60))
}

// -----------------------------------------------------------------------------

func TestInitializeSeedsWindowAndSkipsForming(t *testing.T) {
	agg := newTestAggregator()

	history := []models.MCandle{
		{StartEpoch: 60, Open: 1, High: 2, Low: 0.5, Close: 1.5, TickCount: 10},
		{StartEpoch: 120, Open: 1.5, High: 3, Low: 1, Close: 2, TickCount: 12},
		{StartEpoch: 180, Open: 2, High: 2.5, Low: 1.8, Close: 2.2, TickCount: 5, IsForming: true},
	}
	agg.Initialize("R_10", 60, history, 50)

	window := agg.GetClosedCandles("R_10", 60)
	require.Len(t, window, 2)
	assert.Equal(t, "R_10", window[0].Symbol)
	assert.Equal(t, int64(60), window[0].TimeframeSeconds)
	assert.Nil(t, agg.GetFormingCandle("R_10", 60))
}

// -----------------------------------------------------------------------------

func TestWindowEvictsOldestAtCapacity(t *testing.T) {
	agg := NewCandleAggregator(3, logger.NewLogger("ERROR", "test"))

	epoch := int64(60)
	for i := 0; i < 5; i++ {
		agg.ProcessTick(tick("R_10", float64(100+i), epoch), 60)
		epoch += 60
	}

	window := agg.GetClosedCandles("R_10", 60)
	require.Len(t, window, 3)
	assert.Equal(t, int64(120), window[0].StartEpoch)
	assert.Equal(t, int64(240), window[2].StartEpoch)
}

// -----------------------------------------------------------------------------

func TestPairsAreIndependent(t *testing.T) {
	agg := newTestAggregator()

	agg.ProcessTick(tick("R_10", 100, 120), 60)
	agg.ProcessTick(tick("R_25", 200, 130), 60)
	agg.ProcessTick(tick("R_10", 101, 140), 120)

	require.NotNil(t, agg.GetFormingCandle("R_10", 60))
	require.NotNil(t, agg.GetFormingCandle("R_25", 60))
	require.NotNil(t, agg.GetFormingCandle("R_10", 120))
	assert.Equal(t, int64(120), agg.GetFormingCandle("R_10", 120).StartEpoch)
}

// -----------------------------------------------------------------------------

func TestCleanupRemovesWindow(t *testing.T) {
	agg := newTestAggregator()

	agg.ProcessTick(tick("R_10", 100, 120), 60)
	agg.Cleanup("R_10", 60)

	assert.Nil(t, agg.GetFormingCandle("R_10", 60))
	assert.Empty(t, agg.GetClosedCandles("R_10", 60))
}
