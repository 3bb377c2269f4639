package interfaces

import (
	"context"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// IFeedClient interface for the upstream market-data connection.
// -----------------------------------------------------------------------------

type IFeedClient interface {

	// Connect dials the provider and starts the read loop. Returns once the
	// connection is established or the context expires.
	Connect(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Close tears down the connection and stops reconnect attempts.
	Close() error

	// -----------------------------------------------------------------------------

	// FetchCandleHistory returns the count most recent closed candles for the
	// symbol at the given granularity, ordered oldest to newest.
	FetchCandleHistory(ctx context.Context, symbol string, timeframeSeconds int64, count int) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// SubscribeTicks registers a handler for a symbol's tick stream.
	// Subscriptions are reference-counted: the first subscriber triggers the
	// protocol-level subscribe, later ones only add a fan-out target.
	SubscribeTicks(symbol, subscriberID string, handler func(models.MTick)) error

	// -----------------------------------------------------------------------------

	// UnsubscribeTicks removes a subscriber; the protocol-level unsubscribe
	// is sent when the last subscriber for the symbol is gone.
	UnsubscribeTicks(symbol, subscriberID string) error

	// -----------------------------------------------------------------------------

	// IsConnected is a lock-free connection snapshot.
	IsConnected() bool

	// -----------------------------------------------------------------------------

	// OnConnected registers a callback fired after every (re)connection,
	// once all active subscriptions have been re-issued.
	OnConnected(fn func())

	// -----------------------------------------------------------------------------

	// OnDisconnected registers a callback fired when the connection drops.
	OnDisconnected(fn func())

	// -----------------------------------------------------------------------------

	// OnSymbolError registers a callback for protocol errors scoped to one
	// symbol's stream, e.g. a rejected subscribe.
	OnSymbolError(fn func(symbol string, err error))
}
