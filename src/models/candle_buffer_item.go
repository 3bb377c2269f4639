package models

// CandleBuffer indices and constants
const (
	CB_IDX_START      = 0
	CB_IDX_OPEN       = 1
	CB_IDX_HIGH       = 2
	CB_IDX_LOW        = 3
	CB_IDX_CLOSE      = 4
	CB_IDX_TICK_COUNT = 5
	CB_NUM_FEATURES   = 6
)
