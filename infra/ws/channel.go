// Package ws implements the realtime channel on top of gorilla/websocket,
// with endpoint discovery, fixed-delay reconnection and a bounded outgoing
// queue for frames sent while the socket is down.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/resqlabs/console/core/metrics"
	"github.com/resqlabs/console/core/realtime"
	"github.com/resqlabs/console/infra/logger"
)

// ErrReconnectExhausted is delivered to OnError, exactly once, when every
// reconnect attempt failed.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

const slowDialWarn = 10 * time.Second

type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var dialWS = func(ctx context.Context, endpoint string) (wsConn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Channel implements realtime.Channel.
type Channel struct {
	cfg  Config
	log  logger.Logger
	sink metrics.MetricsSink

	mu       sync.Mutex
	conn     wsConn
	state    realtime.ConnState
	handlers realtime.Handlers
	manual   bool
	attempts int
	gen      uint64
	timer    *time.Timer
	queue    [][]byte
	endpoint string

	// wmu serializes writers; gorilla allows one concurrent writer only.
	wmu sync.Mutex
}

// New creates a disconnected channel. Defaults are applied to cfg.
func New(cfg Config, sink metrics.MetricsSink, log logger.Logger) *Channel {
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Channel{cfg: cfg, sink: sink, log: log, state: realtime.StateDisconnected}
}

// Connect resolves the endpoint and opens the socket. When the first dial
// fails the reconnect cycle starts and the dial error is returned so the
// caller knows the channel is not yet live.
func (c *Channel) Connect(ctx context.Context, h realtime.Handlers) error {
	c.mu.Lock()
	switch c.state {
	case realtime.StateConnected, realtime.StateConnecting, realtime.StateReconnecting:
		c.mu.Unlock()
		return nil
	}
	c.handlers = h
	c.manual = false
	c.attempts = 0
	c.setState(realtime.StateConnecting)
	c.mu.Unlock()

	if c.endpoint == "" {
		endpoint, err := discoverEndpoint(ctx, c.cfg)
		if err != nil {
			c.mu.Lock()
			c.setState(realtime.StateDisconnected)
			c.mu.Unlock()
			return err
		}
		c.endpoint = endpoint
	}

	if err := c.dial(ctx); err != nil {
		c.mu.Lock()
		if !c.manual {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Channel) dial(ctx context.Context) error {
	slow := time.AfterFunc(slowDialWarn, func() {
		c.log.Warnf("websocket dial to %s still pending after %s", c.endpoint, slowDialWarn)
	})
	conn, err := dialWS(ctx, c.endpoint)
	slow.Stop()
	if err != nil {
		c.log.Warnf("websocket dial failed: %v", err)
		return err
	}

	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.gen++
	gen := c.gen
	c.attempts = 0
	c.conn = conn
	pending := c.queue
	c.queue = nil
	c.setState(realtime.StateConnected)
	onConnect := c.handlers.OnConnect
	c.mu.Unlock()

	c.wmu.Lock()
	for _, frame := range pending {
		if werr := conn.WriteMessage(websocket.TextMessage, frame); werr != nil {
			c.log.Warnf("flushing queued frame: %v", werr)
			break
		}
	}
	c.wmu.Unlock()

	c.log.Infof("websocket connected to %s", c.endpoint)
	if onConnect != nil {
		onConnect()
	}
	go c.readLoop(gen, conn)
	return nil
}

func (c *Channel) readLoop(gen uint64, conn wsConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		ev, derr := realtime.Decode(data)
		if derr != nil {
			c.log.Warnf("dropping frame: %v", derr)
			c.sink.RecordDroppedFrame("decode")
			continue
		}
		c.sink.RecordMessage(ev.EventType())
		c.mu.Lock()
		onMessage := c.handlers.OnMessage
		c.mu.Unlock()
		if onMessage != nil {
			onMessage(ev)
		}
	}
}

func (c *Channel) handleClose(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		// A newer connection superseded this one; nothing to report.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	onDisconnect := c.handlers.OnDisconnect
	c.log.Warnf("websocket closed: %v", err)
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	if onDisconnect != nil {
		onDisconnect()
	}
}

// scheduleReconnectLocked advances the reconnect cycle. Callers hold c.mu.
func (c *Channel) scheduleReconnectLocked() {
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.setState(realtime.StateFailed)
		onError := c.handlers.OnError
		if onError != nil {
			go onError(ErrReconnectExhausted)
		}
		c.log.Errorf("giving up after %d reconnect attempts", c.attempts)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.setState(realtime.StateReconnecting)
	c.sink.RecordReconnect(attempt)
	delay := time.Duration(c.cfg.ReconnectDelayMS) * time.Millisecond
	c.log.Infof("reconnect attempt %d/%d in %s", attempt, c.cfg.MaxReconnectAttempts, delay)
	c.timer = time.AfterFunc(delay, c.retry)
}

func (c *Channel) retry() {
	c.mu.Lock()
	if c.manual || c.state != realtime.StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.dial(context.Background()); err != nil {
		c.mu.Lock()
		if !c.manual {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
	}
}

// Disconnect closes the socket and cancels any pending reconnect. The
// OnDisconnect callback fires when a live connection was torn down.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	wasConnected := c.state == realtime.StateConnected
	c.setState(realtime.StateDisconnected)
	onDisconnect := c.handlers.OnDisconnect
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if wasConnected && onDisconnect != nil {
		onDisconnect()
	}
}

// Send marshals the payload and writes it to the socket. While the socket
// is down the frame is queued; when the queue is full the oldest frame is
// dropped to make room.
func (c *Channel) Send(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Errorf("marshalling outgoing frame: %v", err)
		return
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil || c.state != realtime.StateConnected {
		if len(c.queue) >= c.cfg.SendQueueSize {
			c.queue = c.queue[1:]
			c.log.Warnf("send queue full, dropping oldest frame")
			c.sink.RecordDroppedFrame("queue_full")
		}
		c.queue = append(c.queue, data)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.wmu.Lock()
	werr := conn.WriteMessage(websocket.TextMessage, data)
	c.wmu.Unlock()
	if werr != nil {
		c.log.Warnf("writing frame: %v", werr)
	}
}

// State returns the current connection state.
func (c *Channel) State() realtime.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState records the transition. Callers hold c.mu.
func (c *Channel) setState(s realtime.ConnState) {
	if c.state == s {
		return
	}
	c.state = s
	c.sink.RecordConnState(string(s))
}
