package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"territory/client/internal/net/proto"
	"territory/client/internal/telemetry"
	"territory/client/logging"
	loggingnetwork "territory/client/logging/network"
)

// DefaultReconnectDelay is the fixed pause between a lost connection and
// the next dial.
const DefaultReconnectDelay = 5000 * time.Millisecond

// ClientIDHeader carries the id the client wants the server to use for its
// player, keeping the id stable across reconnects.
const ClientIDHeader = "X-Client-ID"

// Handler receives session lifecycle and inbound frames. Calls for one
// session happen on a single goroutine, in order: Connected, any number of
// Message, then Disconnected.
type Handler interface {
	Connected(ctx context.Context, s *Session)
	Message(ctx context.Context, s *Session, messageType int, data []byte)
	Disconnected(ctx context.Context, s *Session, err error)
}

type Config struct {
	URL            string
	ClientID       string
	SendClientID   bool
	ReconnectDelay time.Duration
	Shape          proto.Shape
	Dialer         *websocket.Dialer
	Logger         telemetry.Logger
	Publisher      logging.Publisher
	Counters       *telemetry.Counters
}

// Client keeps one websocket session alive, redialling after a fixed delay
// whenever it drops, until its context is cancelled.
type Client struct {
	cfg     Config
	handler Handler
	logger  telemetry.Logger
	pub     logging.Publisher
	current atomic.Pointer[Session]
}

func NewClient(cfg Config, handler Handler) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Shape == "" {
		cfg.Shape = proto.ShapeBare
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Client{cfg: cfg, handler: handler, logger: logger, pub: pub}
}

// Session returns the live session, or nil while disconnected.
func (c *Client) Session() *Session {
	return c.current.Load()
}

// Run dials, serves and redials until ctx is done. It returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	var attempt uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++
		sess, err := c.dial(ctx, attempt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Printf("[ws] dial %s failed (attempt %d): %v", c.cfg.URL, attempt, err)
			loggingnetwork.DialFailed(ctx, c.pub, loggingnetwork.DialFailedPayload{
				URL:     c.cfg.URL,
				Error:   err.Error(),
				Attempt: attempt,
			}, nil)
		} else {
			attempt = 0
			c.serve(ctx, sess)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("[ws] reconnecting in %s", c.cfg.ReconnectDelay)
		loggingnetwork.ReconnectScheduled(ctx, c.pub, loggingnetwork.ReconnectPayload{
			DelayMillis: c.cfg.ReconnectDelay.Milliseconds(),
		}, nil)
		timer := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) dial(ctx context.Context, attempt uint64) (*Session, error) {
	header := http.Header{}
	requested := ""
	if c.cfg.SendClientID && c.cfg.ClientID != "" {
		header.Set(ClientIDHeader, c.cfg.ClientID)
		requested = c.cfg.ClientID
	}
	conn, resp, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}

	sess := newSession(conn, c.cfg.URL, requested, c.pub)
	c.cfg.Counters.RecordConnect()
	c.logger.Printf("[ws] connected to %s session=%s", c.cfg.URL, sess.ID)
	loggingnetwork.Connected(ctx, sess.Publisher(), sess.ID, loggingnetwork.ConnectedPayload{
		URL:      c.cfg.URL,
		ClientID: requested,
		Attempt:  attempt,
	}, nil)
	return sess, nil
}

// serve runs one session until its connection fails or ctx is done.
func (c *Client) serve(ctx context.Context, sess *Session) {
	conn := sess.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.current.Store(sess)
	if c.handler != nil {
		c.handler.Connected(ctx, sess)
	}

	stop := make(chan struct{})
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		c.keepalive(ctx, sess, stop)
	}()

	var readErr error
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		sess.frames.Add(1)
		c.cfg.Counters.RecordFrame(len(data))
		if c.handler != nil {
			c.handler.Message(ctx, sess, messageType, data)
		}
	}

	close(stop)
	<-pingDone
	c.current.CompareAndSwap(sess, nil)
	sess.closed.Store(true)
	_ = conn.Close()

	reason := describeClose(ctx, sess, readErr)
	c.logger.Printf("[ws] session %s ended after %d frames: %s", sess.ID, sess.Frames(), reason)
	loggingnetwork.Disconnected(ctx, sess.Publisher(), sess.ID, loggingnetwork.DisconnectedPayload{
		Reason:   reason,
		Frames:   sess.Frames(),
		Duration: time.Since(sess.Started).Round(time.Millisecond).String(),
	}, nil)
	if c.handler != nil {
		c.handler.Disconnected(ctx, sess, readErr)
	}
}

// keepalive pings the server and tears the connection down when ctx ends,
// which unblocks the read loop.
func (c *Client) keepalive(ctx context.Context, sess *Session, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			_ = sess.Close("client shutting down")
			return
		case <-ticker.C:
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Printf("[ws] ping failed session=%s: %v", sess.ID, err)
				_ = sess.conn.Close()
				return
			}
		}
	}
}

func describeClose(ctx context.Context, sess *Session, err error) string {
	if reason := sess.closeReason(); reason != "" {
		return reason
	}
	if ctx.Err() != nil {
		return ctx.Err().Error()
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return fmt.Sprintf("server closed (%d %s)", closeErr.Code, closeErr.Text)
	}
	if err != nil {
		return err.Error()
	}
	return "closed"
}

// Reconnect drops the live session so Run dials again after the usual
// delay. It reports false while disconnected or when the live session is
// already closing.
func (c *Client) Reconnect(reason string) bool {
	sess := c.current.Load()
	if sess == nil || sess.Closed() {
		return false
	}
	did, err := sess.shutdown(reason)
	return did && err == nil
}

// SendMove frames dir in the configured shape and sends it on the live
// session.
func (c *Client) SendMove(ctx context.Context, dir proto.Direction) error {
	sess := c.current.Load()
	if sess == nil {
		return ErrNotConnected
	}
	data, err := proto.EncodeMove(c.cfg.Shape, sess.PlayerID(), dir)
	if err != nil {
		return err
	}
	return sess.SendText(data)
}

// SendCustomization pushes the local player's name and color.
func (c *Client) SendCustomization(ctx context.Context, name, color string) error {
	sess := c.current.Load()
	if sess == nil {
		return ErrNotConnected
	}
	data, err := proto.EncodeCustomization(name, color)
	if err != nil {
		return err
	}
	return sess.SendText(data)
}
