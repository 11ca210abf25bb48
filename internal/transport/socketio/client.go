package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"sleepywoodpecker/waveview/internal/ingest"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("[socketio] not connected")

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
	handshakeTimeout = 10 * time.Second
)

type Options struct {
	URL       string
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Dialer    *websocket.Dialer
}

// Client is a Socket.IO client over the websocket transport. It reconnects on its own,
// the dispatcher only ever sees ConnectionChanged events.
type Client struct {
	opts   Options
	events chan<- ingest.Event
	logger *zap.Logger

	connMutex sync.Mutex
	conn      *websocket.Conn
}

func NewClient(opts Options, events chan<- ingest.Event, logger *zap.Logger) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	return &Client{
		opts:   opts,
		events: events,
		logger: logger,
	}
}

// Run keeps a session open until ctx is cancelled, then closes the event channel
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	endpoint, err := EndpointURL(c.opts.URL)
	if err != nil {
		return err
	}

	failures := 0
	for {
		connected, err := c.session(ctx, endpoint)
		if ctx.Err() != nil {
			return nil
		}

		if connected {
			failures = 0
		}
		failures++

		delay := backoffDelay(c.opts.BaseDelay, c.opts.MaxDelay, failures)
		c.logger.Warn("[socketio] session ended, reconnecting",
			zap.Error(err),
			zap.String("url", c.opts.URL),
			zap.Duration("delay", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// backoffDelay is base * 2^(failures-1) capped at max, plus up to 10% jitter
func backoffDelay(base, maxDelay time.Duration, failures int) time.Duration {
	multiplier := math.Pow(2, float64(failures-1))
	delay := time.Duration(float64(base) * multiplier)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

// session runs one connection to completion. connected reports whether the namespace handshake succeeded.
func (c *Client) session(ctx context.Context, endpoint string) (connected bool, err error) {
	conn, _, err := c.opts.Dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("[socketio] dial: %w", err)
	}
	defer conn.Close()

	connectionID := uuid.NewString()
	logger := c.logger.With(zap.String("connectionID", connectionID))

	// unblock reads when shutting down
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	hs, early, err := c.handshake(conn)
	if err != nil {
		return false, err
	}
	logger.Info("[socketio] connected", zap.String("sid", hs.SID), zap.String("url", c.opts.URL))

	c.setConn(conn)
	c.emit(ctx, ingest.ConnectionChanged{Connected: true})
	defer func() {
		c.setConn(nil)
		c.emit(ctx, ingest.ConnectionChanged{Connected: false})
	}()

	// the server's connect handler may emit before the ack, e.g. initial_data
	for _, body := range early {
		c.handleEvent(ctx, body, logger)
	}

	return true, c.readLoop(ctx, conn, hs, logger)
}

// handshake opens the engine session and joins the default namespace. Events that arrive
// before the connect ack are returned in order so the caller can deliver them once connected.
func (c *Client) handshake(conn *websocket.Conn) (handshake, [][]byte, error) {
	var hs handshake
	var early [][]byte

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hs, nil, fmt.Errorf("[socketio] reading open packet: %w", err)
	}
	if len(data) == 0 || data[0] != engineOpen {
		return hs, nil, fmt.Errorf("%w: expected open packet, got %q", errMalformedPacket, data)
	}
	if err := json.Unmarshal(data[1:], &hs); err != nil {
		return hs, nil, fmt.Errorf("%w: open packet: %v", errMalformedPacket, err)
	}

	if err := c.write(conn, []byte{engineMessage, socketConnect}); err != nil {
		return hs, nil, fmt.Errorf("[socketio] sending connect: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return hs, nil, fmt.Errorf("[socketio] waiting for connect ack: %w", err)
		}
		if len(data) >= 2 && data[0] == engineMessage {
			switch data[1] {
			case socketConnect:
				return hs, early, nil
			case socketConnectError:
				return hs, nil, fmt.Errorf("[socketio] connect refused: %s", data[2:])
			case socketEvent:
				if isDefaultNamespace(data[2:]) {
					early = append(early, data[2:])
				}
			}
		}
		if len(data) == 1 && data[0] == enginePing {
			if err := c.write(conn, []byte{enginePong}); err != nil {
				return hs, nil, err
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, hs handshake, logger *zap.Logger) error {
	// the server pings every pingInterval, silence beyond interval+timeout means the link is dead
	liveness := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	if liveness <= 0 {
		liveness = 45 * time.Second
	}

	for {
		conn.SetReadDeadline(time.Now().Add(liveness))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("[socketio] read: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case enginePing:
			if err := c.write(conn, []byte{enginePong}); err != nil {
				return fmt.Errorf("[socketio] pong: %w", err)
			}
		case engineClose:
			return errors.New("[socketio] server closed the engine session")
		case engineMessage:
			if len(data) < 2 || !isDefaultNamespace(data[2:]) {
				continue
			}
			switch data[1] {
			case socketDisconnect:
				return errors.New("[socketio] server disconnected the namespace")
			case socketEvent:
				c.handleEvent(ctx, data[2:], logger)
			}
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, body []byte, logger *zap.Logger) {
	name, args, err := splitEvent(body)
	if err != nil {
		logger.Warn("[socketio] dropping malformed event", zap.Error(err), zap.Int("length", len(body)))
		return
	}

	ev, err := decodeEvent(name, args)
	if err != nil {
		logger.Warn("[socketio] dropping undecodable event", zap.Error(err), zap.String("event", name))
		return
	}
	if ev == nil {
		logger.Debug("[socketio] ignoring event", zap.String("event", name))
		return
	}

	c.emit(ctx, ev)
}

func (c *Client) emit(ctx context.Context, ev ingest.Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	c.conn = conn
}

// write serializes writers, gorilla connections allow only one at a time
func (c *Client) write(conn *websocket.Conn, data []byte) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// RequestStats emits request_stats on the current connection
func (c *Client) RequestStats() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	packet, err := encodeEvent("request_stats")
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, packet)
}
