package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"signal-engine/src/helpers"
	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// FeedClient speaks the provider's JSON protocol over one persistent
// websocket: request/reply pairs correlated by req_id, plus streaming tick
// subscriptions. It owns reconnection; callers never see the raw socket.
// -----------------------------------------------------------------------------

type FeedClient struct {
	Logger *logger.Logger

	endpoint       string
	appID          string
	requestTimeout time.Duration
	baseDelay      time.Duration
	maxDelay       time.Duration

	connMu sync.Mutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	connected atomic.Bool
	closed    atomic.Bool

	reqCounter atomic.Int64
	pendingMu  sync.Mutex
	pending    map[int64]chan feedMessage

	subsMu sync.Mutex
	subs   map[string]*tickSubscription

	callbackMu     sync.Mutex
	onConnected    []func()
	onDisconnected []func()
	onSymbolError  []func(string, error)
}

// tickSubscription fans one symbol's stream out to its subscribers. Ticks
// flow through a buffered channel drained by a single goroutine, so handler
// order matches arrival order and a slow handler never blocks the read loop.
type tickSubscription struct {
	streamID string
	handlers map[string]func(models.MTick)
	ticks    chan models.MTick
	done     chan struct{}
}

// -----------------------------------------------------------------------------
// Wire Messages
// -----------------------------------------------------------------------------

type feedMessage struct {
	ReqID        int64             `json:"req_id,omitempty"`
	Error        *feedError        `json:"error,omitempty"`
	Tick         *feedTick         `json:"tick,omitempty"`
	Candles      []feedCandle      `json:"candles,omitempty"`
	Subscription *feedSubscription `json:"subscription,omitempty"`
	Echo         *feedEcho         `json:"echo_req,omitempty"`
}

// feedEcho is the provider's echo of the request that caused a reply; for
// stream errors without a req_id it is the only way back to the symbol.
type feedEcho struct {
	Ticks string `json:"ticks,omitempty"`
}

type feedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type feedTick struct {
	Symbol string  `json:"symbol"`
	Quote  float64 `json:"quote"`
	Epoch  int64   `json:"epoch"`
}

type feedCandle struct {
	Epoch int64   `json:"epoch"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type feedSubscription struct {
	ID string `json:"id"`
}

// -----------------------------------------------------------------------------

func NewFeedClient(cfg models.MFeedConfig, log *logger.Logger) *FeedClient {
	return &FeedClient{
		Logger:         log,
		endpoint:       cfg.Endpoint,
		appID:          cfg.AppID,
		requestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		baseDelay:      time.Duration(cfg.ReconnectBaseDelay) * time.Second,
		maxDelay:       time.Duration(cfg.ReconnectMaxDelay) * time.Second,
		pending:        make(map[int64]chan feedMessage),
		subs:           make(map[string]*tickSubscription),
	}
}

// -----------------------------------------------------------------------------

// Connect dials the provider and starts the read loop. It returns once the
// socket is up; reconnection after later drops is automatic.
func (c *FeedClient) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return helpers.NewFeedUnavailable("initial connect failed", err)
	}
	c.fireConnected()
	return nil
}

// -----------------------------------------------------------------------------

// Close tears the connection down for good. No reconnect follows.
func (c *FeedClient) Close() error {
	c.closed.Store(true)
	c.connected.Store(false)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// IsConnected is a lock-free snapshot of the connection state.
func (c *FeedClient) IsConnected() bool {
	return c.connected.Load()
}

// -----------------------------------------------------------------------------

// OnConnected registers a callback fired after every (re)connection, once
// active subscriptions have been re-issued.
func (c *FeedClient) OnConnected(fn func()) {
	c.callbackMu.Lock()
	c.onConnected = append(c.onConnected, fn)
	c.callbackMu.Unlock()
}

// -----------------------------------------------------------------------------

// OnDisconnected registers a callback fired when the connection drops.
func (c *FeedClient) OnDisconnected(fn func()) {
	c.callbackMu.Lock()
	c.onDisconnected = append(c.onDisconnected, fn)
	c.callbackMu.Unlock()
}

// -----------------------------------------------------------------------------

// OnSymbolError registers a callback for protocol errors scoped to one
// symbol's stream, e.g. a rejected subscribe.
func (c *FeedClient) OnSymbolError(fn func(symbol string, err error)) {
	c.callbackMu.Lock()
	c.onSymbolError = append(c.onSymbolError, fn)
	c.callbackMu.Unlock()
}

// -----------------------------------------------------------------------------

// FetchCandleHistory requests the count most recent closed candles for the
// symbol, ordered oldest to newest.
func (c *FeedClient) FetchCandleHistory(ctx context.Context, symbol string, timeframeSeconds int64, count int) ([]models.MCandle, error) {
	if !c.IsConnected() {
		return nil, helpers.NewFeedUnavailable(fmt.Sprintf("history fetch for %s while disconnected", symbol), nil)
	}

	resp, err := c.sendRequest(ctx, map[string]interface{}{
		"ticks_history": symbol,
		"style":         "candles",
		"granularity":   timeframeSeconds,
		"count":         count,
		"end":           "latest",
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, helpers.NewFeedUnavailable(fmt.Sprintf("history fetch for %s rejected: %s", symbol, resp.Error.Message), nil)
	}

	now := time.Now().Unix()
	candles := make([]models.MCandle, 0, len(resp.Candles))
	for _, fc := range resp.Candles {
		candle := models.MCandle{
			Symbol:           symbol,
			TimeframeSeconds: timeframeSeconds,
			Open:             fc.Open,
			High:             fc.High,
			Low:              fc.Low,
			Close:            fc.Close,
			StartEpoch:       (fc.Epoch / timeframeSeconds) * timeframeSeconds,
		}
		// The provider includes the bucket still in progress; skip it.
		if candle.EndEpoch() > now {
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// -----------------------------------------------------------------------------

// SubscribeTicks adds a fan-out target for the symbol. The first subscriber
// triggers the protocol-level subscribe.
func (c *FeedClient) SubscribeTicks(symbol, subscriberID string, handler func(models.MTick)) error {
	c.subsMu.Lock()
	sub, exists := c.subs[symbol]
	if !exists {
		sub = &tickSubscription{
			handlers: make(map[string]func(models.MTick)),
			ticks:    make(chan models.MTick, 256),
			done:     make(chan struct{}),
		}
		c.subs[symbol] = sub
		go c.dispatchLoop(symbol, sub)
	}
	sub.handlers[subscriberID] = handler
	c.subsMu.Unlock()

	if !exists && c.IsConnected() {
		return c.sendSubscribe(symbol)
	}
	return nil
}

// -----------------------------------------------------------------------------

// UnsubscribeTicks removes one subscriber; the protocol-level unsubscribe
// goes out when the last one is gone.
func (c *FeedClient) UnsubscribeTicks(symbol, subscriberID string) error {
	c.subsMu.Lock()
	sub, exists := c.subs[symbol]
	if !exists {
		c.subsMu.Unlock()
		return nil
	}
	delete(sub.handlers, subscriberID)
	last := len(sub.handlers) == 0
	streamID := sub.streamID
	if last {
		close(sub.done)
		delete(c.subs, symbol)
	}
	c.subsMu.Unlock()

	if last && c.IsConnected() {
		if streamID != "" {
			return c.writeJSON(map[string]interface{}{"forget": streamID})
		}
		// No tick ever arrived, so the stream id is unknown; unsubscribe by
		// symbol to keep the provider side from leaking the stream.
		return c.writeJSON(map[string]interface{}{"ticks": symbol, "subscribe": 0})
	}
	return nil
}

// -----------------------------------------------------------------------------
// Connection Lifecycle
// -----------------------------------------------------------------------------

func (c *FeedClient) dial(ctx context.Context) error {
	url := c.endpoint
	if c.appID != "" {
		url = fmt.Sprintf("%s?app_id=%s", c.endpoint, c.appID)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.connected.Store(true)

	go c.readLoop(conn)
	c.Logger.Info("Feed connected to %s", c.endpoint)
	return nil
}

// -----------------------------------------------------------------------------

func (c *FeedClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(err)
			return
		}

		var msg feedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Logger.Warning("Dropped malformed feed message: %v", err)
			continue
		}
		c.routeMessage(msg)
	}
}

// -----------------------------------------------------------------------------

func (c *FeedClient) routeMessage(msg feedMessage) {
	// 1. Streaming tick
	if msg.Tick != nil {
		c.subsMu.Lock()
		sub, ok := c.subs[msg.Tick.Symbol]
		if ok && msg.Subscription != nil && sub.streamID == "" {
			sub.streamID = msg.Subscription.ID
		}
		c.subsMu.Unlock()
		if !ok {
			return
		}

		tick := models.MTick{Symbol: msg.Tick.Symbol, Price: msg.Tick.Quote, Epoch: msg.Tick.Epoch}
		select {
		case sub.ticks <- tick:
		default:
			c.Logger.Warning("Tick queue full for %s, dropping tick", msg.Tick.Symbol)
		}
		return
	}

	// 2. Request/reply correlation
	if msg.ReqID != 0 {
		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ReqID]
		if ok {
			delete(c.pending, msg.ReqID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- msg
		}
		return
	}

	// 3. Stream error without a req_id: surface it per symbol when the echo
	// names one, so the subscriber can decide what to do.
	if msg.Error != nil {
		if msg.Echo != nil && msg.Echo.Ticks != "" {
			c.Logger.Warning("Feed stream error for %s: %s (%s)", msg.Echo.Ticks, msg.Error.Message, msg.Error.Code)
			c.fireSymbolError(msg.Echo.Ticks, fmt.Errorf("%s (%s)", msg.Error.Message, msg.Error.Code))
			return
		}
		c.Logger.Warning("Feed error event: %s (%s)", msg.Error.Message, msg.Error.Code)
	}
}

// -----------------------------------------------------------------------------

func (c *FeedClient) dispatchLoop(symbol string, sub *tickSubscription) {
	for {
		select {
		case <-sub.done:
			return
		case tick := <-sub.ticks:
			c.subsMu.Lock()
			handlers := make([]func(models.MTick), 0, len(sub.handlers))
			for _, h := range sub.handlers {
				handlers = append(handlers, h)
			}
			c.subsMu.Unlock()

			for _, h := range handlers {
				h(tick)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (c *FeedClient) handleDisconnect(cause error) {
	if c.closed.Load() {
		return
	}
	if !c.connected.CompareAndSwap(true, false) {
		return
	}

	c.Logger.Warning("Feed disconnected: %v", cause)
	c.failPending()
	c.fireDisconnected()

	go c.reconnectLoop()
}

// -----------------------------------------------------------------------------

// reconnectLoop retries with exponential backoff and jitter until the
// socket is back or Close is called. Subscriptions are re-issued before the
// connected event fires, so subscribers never observe a silent gap.
func (c *FeedClient) reconnectLoop() {
	delay := c.baseDelay
	if delay <= 0 {
		delay = time.Second
	}

	for !c.closed.Load() {
		jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
		time.Sleep(delay + jitter)

		ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
		err := c.dial(ctx)
		cancel()
		if err == nil {
			c.resubscribeAll()
			c.fireConnected()
			return
		}

		c.Logger.Warning("Reconnect attempt failed: %v. Next try in %v", err, delay)
		delay *= 2
		if c.maxDelay > 0 && delay > c.maxDelay {
			delay = c.maxDelay
		}
	}
}

// -----------------------------------------------------------------------------

func (c *FeedClient) resubscribeAll() {
	c.subsMu.Lock()
	symbols := make([]string, 0, len(c.subs))
	for symbol, sub := range c.subs {
		sub.streamID = ""
		symbols = append(symbols, symbol)
	}
	c.subsMu.Unlock()

	for _, symbol := range symbols {
		if err := c.sendSubscribe(symbol); err != nil {
			c.Logger.Error("Resubscribe failed for %s: %v", symbol, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Protocol Writes
// -----------------------------------------------------------------------------

func (c *FeedClient) sendSubscribe(symbol string) error {
	return c.writeJSON(map[string]interface{}{"ticks": symbol, "subscribe": 1})
}

// -----------------------------------------------------------------------------

func (c *FeedClient) sendRequest(ctx context.Context, payload map[string]interface{}) (feedMessage, error) {
	reqID := c.reqCounter.Add(1)
	payload["req_id"] = reqID

	ch := make(chan feedMessage, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = ch
	c.pendingMu.Unlock()

	if err := c.writeJSON(payload); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
		return feedMessage{}, helpers.NewFeedUnavailable("request write failed", err)
	}

	timeout := c.requestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-ch:
		if !ok {
			return feedMessage{}, helpers.NewFeedUnavailable("connection lost mid-request", nil)
		}
		return msg, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
		return feedMessage{}, helpers.NewFeedUnavailable("request cancelled", ctx.Err())
	case <-timer.C:
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
		return feedMessage{}, helpers.NewFeedUnavailable("request timed out", nil)
	}
}

// -----------------------------------------------------------------------------

func (c *FeedClient) writeJSON(payload interface{}) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return helpers.NewFeedUnavailable("no connection", nil)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(payload)
}

// -----------------------------------------------------------------------------

// failPending closes every in-flight request channel so waiters return a
// disconnect error instead of hanging on a reply that can never come.
func (c *FeedClient) failPending() {
	c.pendingMu.Lock()
	for reqID, ch := range c.pending {
		close(ch)
		delete(c.pending, reqID)
	}
	c.pendingMu.Unlock()
}

// -----------------------------------------------------------------------------

func (c *FeedClient) fireConnected() {
	c.callbackMu.Lock()
	callbacks := append([]func(){}, c.onConnected...)
	c.callbackMu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// -----------------------------------------------------------------------------

func (c *FeedClient) fireDisconnected() {
	c.callbackMu.Lock()
	callbacks := append([]func(){}, c.onDisconnected...)
	c.callbackMu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// -----------------------------------------------------------------------------

func (c *FeedClient) fireSymbolError(symbol string, err error) {
	c.callbackMu.Lock()
	callbacks := append([]func(string, error){}, c.onSymbolError...)
	c.callbackMu.Unlock()
	for _, fn := range callbacks {
		fn(symbol, err)
	}
}
