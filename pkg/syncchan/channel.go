package syncchan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goliatone/go-schemabuild/pkg/schema"
)

// State is the connection state machine position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// SaveResult is the outcome of one coalesced save attempt, delivered on
// Results for the autosave policy to surface. Gen echoes the generation
// RequestSave returned, so callers can tell which queued document was
// acknowledged.
type SaveResult struct {
	Gen uint64
	Err error
	At  time.Time
}

// queuedSave is the latest document awaiting transmission.
type queuedSave struct {
	doc schema.SchemaDocument
	gen uint64
}

// Settings bounds the channel's timing behavior.
type Settings struct {
	// ReconnectInterval is the fixed backoff between reconnection attempts.
	// There is no retry cutoff; the tool runs until the user finishes.
	ReconnectInterval time.Duration
	// AckTimeout bounds the wait for a response to any request.
	AckTimeout       time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	PongWait         time.Duration
}

// DefaultSettings returns the production timing bounds.
func DefaultSettings() Settings {
	return Settings{
		ReconnectInterval: 5 * time.Second,
		AckTimeout:        5 * time.Second,
		HandshakeTimeout:  5 * time.Second,
		WriteTimeout:      5 * time.Second,
		PingInterval:      54 * time.Second,
		PongWait:          60 * time.Second,
	}
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger injects a logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Channel) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSettings overrides the timing bounds.
func WithSettings(s Settings) Option {
	return func(c *Channel) { c.settings = s }
}

// WithFetchHandler registers the callback invoked with the authoritative
// document fetched automatically on every (re)connect.
func WithFetchHandler(fn func(schema.SchemaDocument)) Option {
	return func(c *Channel) { c.onFetch = fn }
}

// WithStateHandler registers a callback invoked on every state transition.
func WithStateHandler(fn func(State)) Option {
	return func(c *Channel) { c.onState = fn }
}

// WithHealthProbe gates every dial attempt on a successful GET against the
// store's health endpoint.
func WithHealthProbe(healthURL string) Option {
	return func(c *Channel) { c.healthURL = healthURL }
}

// Channel is a reconnecting duplex connection to the backing store process.
type Channel struct {
	ctx    context.Context
	cancel context.CancelFunc

	url       string
	healthURL string
	dialer    *websocket.Dialer
	client    *http.Client
	log       *zap.Logger
	settings  Settings
	onFetch   func(schema.SchemaDocument)
	onState   func(State)

	state atomic.Int32

	connMu sync.Mutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan Response
	nextID    atomic.Uint64

	// opMu serializes save/finish round trips: at most one in flight.
	opMu sync.Mutex

	queueMu sync.Mutex
	queued  *queuedSave
	saveGen atomic.Uint64
	kick    chan struct{}

	results chan SaveResult
	wg      sync.WaitGroup
}

// Endpoints derives the websocket and health URLs for a store base address
// such as "http://localhost:5173".
func Endpoints(base string) (wsURL, healthURL string, err error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", "", fmt.Errorf("syncchan: invalid store url %q: %w", base, err)
	}
	health := *u
	health.Path = "/api/health"
	ws := *u
	ws.Path = "/api/sync"
	switch u.Scheme {
	case "http", "ws":
		ws.Scheme = "ws"
		health.Scheme = "http"
	case "https", "wss":
		ws.Scheme = "wss"
		health.Scheme = "https"
	default:
		return "", "", fmt.Errorf("syncchan: unsupported scheme %q", u.Scheme)
	}
	return ws.String(), health.String(), nil
}

// Dial starts a channel against the websocket endpoint at wsURL. The
// connection is established in the background; operations issued before it is
// up fail with ErrConnectionLost and may be retried.
func Dial(ctx context.Context, wsURL string, opts ...Option) *Channel {
	cctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		ctx:      cctx,
		cancel:   cancel,
		url:      wsURL,
		log:      zap.NewNop(),
		settings: DefaultSettings(),
		pending:  make(map[uint64]chan Response),
		kick:     make(chan struct{}, 1),
		results:  make(chan SaveResult, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dialer = &websocket.Dialer{HandshakeTimeout: c.settings.HandshakeTimeout}
	c.client = &http.Client{Timeout: c.settings.AckTimeout}

	c.wg.Add(2)
	go c.run()
	go c.saver()
	return c
}

// Close tears the channel down and waits for its goroutines to exit.
func (c *Channel) Close() error {
	c.cancel()
	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connMu.Unlock()
	c.wg.Wait()
	return nil
}

// State returns the current connection state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Results delivers the outcome of coalesced save attempts.
func (c *Channel) Results() <-chan SaveResult {
	return c.results
}

// Fetch retrieves the authoritative document from the store.
func (c *Channel) Fetch(ctx context.Context) (schema.SchemaDocument, error) {
	resp, err := c.roundTrip(ctx, MsgGetSchema, nil)
	if err != nil {
		return schema.SchemaDocument{}, err
	}
	doc, err := schema.ParseDocument(resp.Data)
	if err != nil {
		return schema.SchemaDocument{}, fmt.Errorf("syncchan: fetched document: %w", err)
	}
	return doc, nil
}

// Save transmits doc and waits for the acknowledgment. It holds the
// single-flight lock, so it never interleaves with a coalesced save.
func (c *Channel) Save(ctx context.Context, doc schema.SchemaDocument) error {
	data, err := doc.MarshalWire()
	if err != nil {
		return fmt.Errorf("syncchan: encode document: %w", err)
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()
	_, err = c.roundTrip(ctx, MsgSaveSchema, data)
	return err
}

// Finish signals the store to finalize. Callers are expected to have saved
// first; Finish is not retried automatically on failure.
func (c *Channel) Finish(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	_, err := c.roundTrip(ctx, MsgFinish, nil)
	return err
}

// RequestSave queues doc for asynchronous transmission and returns its
// generation number. A queued document that has not been sent yet is
// replaced, so only the latest state travels once the in-flight save (if any)
// completes; its SaveResult carries the returned generation back.
func (c *Channel) RequestSave(doc schema.SchemaDocument) uint64 {
	item := &queuedSave{doc: doc.Clone(), gen: c.saveGen.Add(1)}
	c.queueMu.Lock()
	c.queued = item
	c.queueMu.Unlock()
	c.kickSaver()
	return item.gen
}

// Health probes the store's health endpoint, reporting reachability.
func (c *Channel) Health(ctx context.Context) error {
	if c.healthURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("syncchan: health probe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("syncchan: health probe: unexpected status %s", resp.Status)
	}
	return nil
}

func (c *Channel) run() {
	defer c.wg.Done()
	for {
		c.setState(StateConnecting)
		conn, err := c.dial()
		if err != nil {
			c.log.Warn("connect failed", zap.String("url", c.url), zap.Error(err))
			c.setState(StateDisconnected)
			if !c.sleepBackoff() {
				return
			}
			continue
		}

		c.attach(conn)
		c.setState(StateConnected)
		c.log.Info("connected", zap.String("url", c.url))

		// Reconcile the authoritative copy and resend any queued save.
		go c.fetchOnConnect()
		c.kickSaver()

		c.readLoop(conn)

		c.detach(conn)
		c.failPending()
		c.setState(StateDisconnected)
		c.log.Info("disconnected", zap.String("url", c.url))
		if !c.sleepBackoff() {
			return
		}
	}
}

func (c *Channel) dial() (*websocket.Conn, error) {
	if err := c.Health(c.ctx); err != nil {
		return nil, err
	}
	conn, resp, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (c *Channel) fetchOnConnect() {
	doc, err := c.Fetch(c.ctx)
	if err != nil {
		c.log.Warn("fetch on connect failed", zap.Error(err))
		return
	}
	if c.onFetch != nil {
		c.onFetch(doc)
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go c.pingLoop(conn, done)

	_ = conn.SetReadDeadline(time.Now().Add(c.settings.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.settings.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.settings.PongWait))

		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.log.Debug("discarding malformed frame", zap.Error(err))
			continue
		}
		c.deliver(resp)
	}
}

func (c *Channel) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *Channel) roundTrip(ctx context.Context, msgType string, data json.RawMessage) (Response, error) {
	conn := c.currentConn()
	if conn == nil {
		return Response{}, ErrConnectionLost
	}

	id := c.nextID.Add(1)
	ch := make(chan Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	payload, err := json.Marshal(Request{ID: id, Type: msgType, Data: data})
	if err != nil {
		c.unregister(id)
		return Response{}, fmt.Errorf("syncchan: encode request: %w", err)
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.unregister(id)
		_ = conn.Close()
		return Response{}, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	timer := time.NewTimer(c.settings.AckTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrConnectionLost
		}
		if resp.Status == StatusError {
			return resp, &RemoteError{Message: resp.Message}
		}
		return resp, nil
	case <-timer.C:
		c.unregister(id)
		// Force a reconnect; a silent peer is indistinguishable from a drop.
		_ = conn.Close()
		return Response{}, ErrTimeout
	case <-ctx.Done():
		c.unregister(id)
		return Response{}, ctx.Err()
	case <-c.ctx.Done():
		c.unregister(id)
		return Response{}, ErrClosed
	}
}

// saver drains the coalescing queue, one save in flight at a time. On a
// connection loss the latest document stays queued and is re-sent after the
// channel reconnects.
func (c *Channel) saver() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.kick:
		}
		for {
			c.queueMu.Lock()
			item := c.queued
			c.queued = nil
			c.queueMu.Unlock()
			if item == nil {
				break
			}

			err := c.Save(c.ctx, item.doc)
			c.emit(SaveResult{Gen: item.gen, Err: err, At: time.Now()})
			if err == nil {
				continue
			}
			c.log.Warn("autosave failed", zap.Error(err))
			if errors.Is(err, ErrConnectionLost) {
				c.queueMu.Lock()
				if c.queued == nil {
					c.queued = item
				}
				c.queueMu.Unlock()
				break
			}
		}
	}
}

func (c *Channel) kickSaver() {
	c.queueMu.Lock()
	queued := c.queued != nil
	c.queueMu.Unlock()
	if !queued {
		return
	}
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Channel) emit(res SaveResult) {
	select {
	case c.results <- res:
	default:
		c.log.Debug("dropping unread save result")
	}
}

func (c *Channel) deliver(resp Response) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		c.log.Debug("response with no pending request", zap.Uint64("id", resp.ID))
		return
	}
	ch <- resp
}

func (c *Channel) unregister(id uint64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// failPending closes every outstanding waiter so callers observe
// ErrConnectionLost.
func (c *Channel) failPending() {
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

func (c *Channel) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Channel) attach(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Channel) detach(conn *websocket.Conn) {
	_ = conn.Close()
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()
}

func (c *Channel) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Channel) sleepBackoff() bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(c.settings.ReconnectInterval):
		return true
	}
}
