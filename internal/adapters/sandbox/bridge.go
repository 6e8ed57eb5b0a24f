package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// Bridge frame kinds. The page sends hello once per connection, the
// runtime sends call frames, and the page answers with result frames and
// pushes event frames for live subscriptions.
const (
	frameHello  = "hello"
	frameCall   = "call"
	frameResult = "result"
	frameEvent  = "event"
)

// Bridge call methods understood by the bootstrap page.
const (
	methodInit    = "init"
	methodOpen    = "open"
	methodDestroy = "destroy"
	methodOn      = "on"
	methodOff     = "off"
)

// frame is the bridge wire envelope. Type selects which fields are set.
type frame struct {
	Type string `json:"type"`

	// hello
	API    string `json:"api,omitempty"`
	Target string `json:"target,omitempty"`

	// call and result, correlated by ID
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	// event
	Viewer       string          `json:"viewer,omitempty"`
	Subscription string          `json:"subscription,omitempty"`
	Event        string          `json:"event,omitempty"`
	Detail       json.RawMessage `json:"detail,omitempty"`
}

type callResult struct {
	result json.RawMessage
	err    error
}

// bridgeConn is one live bridge connection to the viewer host page. It
// owns the socket: writes are serialized through writeMu and all reads
// happen on the readLoop goroutine. Once the connection fails, every
// pending and future call resolves with the close error.
type bridgeConn struct {
	ws     *websocket.Conn
	logger ports.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan callResult
	handlers map[string]func(streetsmart.Event)
	closed   bool
	closeErr error

	done chan struct{}
}

func newBridgeConn(ws *websocket.Conn, logger ports.Logger) *bridgeConn {
	return &bridgeConn{
		ws:       ws,
		logger:   logger,
		pending:  make(map[string]chan callResult),
		handlers: make(map[string]func(streetsmart.Event)),
		done:     make(chan struct{}),
	}
}

// call performs one correlated request against the page and waits for
// its result.
func (c *bridgeConn) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", method, err)
		}
		raw = b
	}

	id := uuid.New().String()
	ch := make(chan callResult, 1)

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.writeJSON(frame{Type: frameCall, ID: id, Method: method, Params: raw}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *bridgeConn) writeJSON(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(f)
}

// readLoop consumes frames until the connection dies, then fails every
// pending call. It runs on the bridge handler goroutine.
func (c *bridgeConn) readLoop() {
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.fail(err)
			return
		}
		c.dispatch(f)
	}
}

// dispatch routes one incoming frame. Event handlers are invoked on the
// reader goroutine; subscribers are expected to hand work off.
func (c *bridgeConn) dispatch(f frame) {
	switch f.Type {
	case frameResult:
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		delete(c.pending, f.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("bridge result without waiter", ports.String("id", f.ID))
			return
		}
		if f.Error != "" {
			ch <- callResult{err: errors.New(f.Error)}
			return
		}
		ch <- callResult{result: f.Result}

	case frameEvent:
		c.mu.Lock()
		fn := c.handlers[f.Subscription]
		c.mu.Unlock()
		if fn == nil {
			c.logger.Debug("bridge event without subscriber",
				ports.String("subscription", f.Subscription),
				ports.String("event", f.Event),
			)
			return
		}
		fn(streetsmart.Event{Name: f.Event, Detail: f.Detail})

	default:
		c.logger.Debug("unexpected bridge frame", ports.String("type", f.Type))
	}
}

func (c *bridgeConn) addHandler(subscription string, fn func(streetsmart.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers != nil {
		c.handlers[subscription] = fn
	}
}

func (c *bridgeConn) removeHandler(subscription string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, subscription)
}

// fail marks the connection dead and resolves every pending call with
// the close error. Safe to invoke more than once.
func (c *bridgeConn) fail(err error) {
	if err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = domain.ErrRuntimeClosed
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	pending := c.pending
	c.pending = nil
	c.handlers = nil
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: err}
	}
	close(c.done)
	_ = c.ws.Close()
}

// close drops the connection; readLoop observes the closed socket and
// finishes the teardown through fail.
func (c *bridgeConn) close() {
	c.fail(domain.ErrRuntimeClosed)
}
