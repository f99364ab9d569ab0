package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"territory/client/logging"
	"territory/client/logging/lifecycle"
)

// ErrNotConnected is returned by sends while no session is live.
var ErrNotConnected = errors.New("websocket not connected")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20
)

// Session is the context of one websocket connection: the connection
// itself, a trace id for its events and the local player id once the
// server has told us which player we are. A session starts when the dial
// succeeds and ends when the read loop stops; a reconnect gets a new one.
type Session struct {
	ID          string
	URL         string
	RequestedID string
	Started     time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex
	pub     logging.Publisher

	playerID  atomic.Pointer[string]
	frames    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	reason    atomic.Pointer[string]
}

func newSession(conn *websocket.Conn, url, requestedID string, pub logging.Publisher) *Session {
	id := uuid.NewString()
	return &Session{
		ID:          id,
		URL:         url,
		RequestedID: requestedID,
		Started:     time.Now(),
		conn:        conn,
		pub:         logging.WithTrace(pub, id),
	}
}

// Publisher returns a publisher that stamps events with this session's
// trace id.
func (s *Session) Publisher() logging.Publisher {
	return s.pub
}

// PlayerID is the local player's id, or "" until it is known.
func (s *Session) PlayerID() string {
	if p := s.playerID.Load(); p != nil {
		return *p
	}
	return ""
}

// ObservePlayer is fed the id of every newPlayer/updatePlayer instruction.
// The first one that matches the requested id (or simply the first one,
// when no id was requested) becomes the local player. It reports whether
// this call claimed the id.
func (s *Session) ObservePlayer(ctx context.Context, id string) bool {
	if id == "" || s.playerID.Load() != nil {
		return false
	}
	if s.RequestedID != "" && id != s.RequestedID {
		return false
	}
	if !s.playerID.CompareAndSwap(nil, &id) {
		return false
	}
	lifecycle.LocalPlayerClaimed(ctx, s.pub, logging.PlayerRef(id), nil)
	return true
}

// Send writes one frame. Writes are serialised; gorilla allows a single
// concurrent writer.
func (s *Session) Send(messageType int, data []byte) error {
	if s == nil || s.closed.Load() {
		return ErrNotConnected
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// SendText writes a text frame.
func (s *Session) SendText(data []byte) error {
	return s.Send(websocket.TextMessage, data)
}

// Frames is the number of frames read so far.
func (s *Session) Frames() uint64 {
	return s.frames.Load()
}

// Close ends the session. The read loop notices and the client schedules a
// reconnect. Safe to call more than once; the first reason wins.
func (s *Session) Close(reason string) error {
	_, err := s.shutdown(reason)
	return err
}

// shutdown reports whether this call was the one that closed the session.
func (s *Session) shutdown(reason string) (bool, error) {
	if s == nil {
		return false, nil
	}
	var (
		did bool
		err error
	)
	s.closeOnce.Do(func() {
		did = true
		s.reason.Store(&reason)
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(writeWait),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return did, err
}

func (s *Session) closeReason() string {
	if p := s.reason.Load(); p != nil {
		return *p
	}
	return ""
}

// Closed reports whether Close was called or the read loop ended.
func (s *Session) Closed() bool {
	return s.closed.Load()
}
