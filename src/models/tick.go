package models

// MTick represents a single immutable price observation from the feed.
type MTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Epoch  int64   `json:"epoch"`
}
