package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"

	"territory/client/internal/config"
	"territory/client/internal/input"
	"territory/client/internal/net/ws"
	"territory/client/internal/telemetry"
	"territory/client/logging"
	"territory/client/logging/lifecycle"
	loggingSinks "territory/client/logging/sinks"
)

func testServer(t *testing.T, serve func(r *http.Request, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(r, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// greet announces the connecting client as a player and forwards every
// text frame it sends to received.
func greet(received chan<- string) func(r *http.Request, conn *websocket.Conn) {
	return func(r *http.Request, conn *websocket.Conn) {
		id := r.Header.Get(ws.ClientIDHeader)
		conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"type":"newPlayer","payload":{"id":%q}}`, id)))
		conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(
			`{"type":"updatePlayer","payload":{"id":%q,"name":"ann","color":"#ff0000","x":50,"y":50,"landCapture":[[false],[false],[false,false,true]],"playerTrail":[]}}`, id)))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(data)
		}
	}
}

func testSettings(t *testing.T, srv *httptest.Server) config.Config {
	settings := config.Default()
	settings.ServerURL = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	settings.ClientID = "player-under-test"
	settings.ReconnectDelay = 10 * time.Millisecond
	settings.TerminalUI = false
	settings.Logging.Console.FilePath = filepath.Join(t.TempDir(), "client.log")
	settings.Logging.EnabledSinks = nil
	return settings
}

func startApp(t *testing.T, cfg Config) (*App, context.CancelFunc, <-chan error) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = telemetry.Discard
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		closeCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		a.Close(closeCtx)
	})
	return a, cancel, done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func expectFrame(t *testing.T, received <-chan string, want string) {
	t.Helper()
	select {
	case got := <-received:
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestHeadlessClientMirrorsPlayersAndSendsMoves(t *testing.T) {
	received := make(chan string, 8)
	srv := testServer(t, greet(received))
	memory := loggingSinks.NewMemorySink()

	a, cancel, done := startApp(t, Config{
		Settings: testSettings(t, srv),
		Sinks:    []logging.NamedSink{{Name: "memory", Sink: memory}},
	})

	waitFor(t, "local player claim", func() bool {
		s := a.Session()
		return s != nil && s.PlayerID() == "player-under-test"
	})
	waitFor(t, "mirrored player", func() bool { return len(a.Players()) == 1 })

	view := a.Players()[0]
	if view.Name != "ann" || view.Color != "#ff0000" {
		t.Fatalf("unexpected view %+v", view)
	}
	if !view.Home() || len(view.Trail) != 0 {
		t.Fatalf("expected player at home with no trail, got %+v", view)
	}

	a.Controller().HandleKey(context.Background(), input.KeyUp)
	expectFrame(t, received, "up")
	a.Controller().HandleKey(context.Background(), input.KeyStop)
	expectFrame(t, received, "stop")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("app did not stop")
	}

	closeCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := a.Close(closeCtx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(memory.OfType(lifecycle.EventPlayerMounted)); n != 1 {
		t.Fatalf("expected one mount event, got %d", n)
	}
	if n := len(memory.OfType(lifecycle.EventLocalPlayerClaimed)); n != 1 {
		t.Fatalf("expected one claim event, got %d", n)
	}
}

func TestBadInstructionBurstForcesReconnect(t *testing.T) {
	var connections atomic.Int32
	srv := testServer(t, func(r *http.Request, conn *websocket.Conn) {
		connections.Add(1)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"newPlayer","payload":{"id":"p1"}}`))
		for i := 0; i < 30; i++ {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"explode","payload":{"id":"p1"}}`))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	a, _, _ := startApp(t, Config{Settings: testSettings(t, srv)})

	waitFor(t, "reconnect", func() bool { return connections.Load() >= 2 })
	waitFor(t, "resync counter", func() bool { return a.Counters().Resyncs >= 1 })
	if a.Counters().InstructionsIgnored < 10 {
		t.Fatalf("expected ignored instructions to be counted, got %+v", a.Counters())
	}
}

type fakeScreen struct {
	mu    sync.Mutex
	cells map[[2]int]rune
}

func (s *fakeScreen) Size() (int, int) { return 60, 20 }

func (s *fakeScreen) Clear(termbox.Attribute, termbox.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = map[[2]int]rune{}
	return nil
}

func (s *fakeScreen) SetCell(x, y int, ch rune, _, _ termbox.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[[2]int{x, y}] = ch
}

func (s *fakeScreen) Flush() error { return nil }

func (s *fakeScreen) contains(ch rune) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cells {
		if c == ch {
			return true
		}
	}
	return false
}

type keyboard struct {
	events    chan termbox.Event
	interrupt chan struct{}
}

func (k *keyboard) PollEvent() termbox.Event {
	select {
	case ev := <-k.events:
		return ev
	case <-k.interrupt:
		return termbox.Event{Type: termbox.EventInterrupt}
	}
}

func (k *keyboard) Interrupt() {
	select {
	case k.interrupt <- struct{}{}:
	default:
	}
}

func (k *keyboard) press(ch rune) {
	k.events <- termbox.Event{Type: termbox.EventKey, Ch: ch}
}

func TestTerminalClientDrawsAndQuits(t *testing.T) {
	received := make(chan string, 8)
	srv := testServer(t, greet(received))

	settings := testSettings(t, srv)
	settings.TerminalUI = true
	screen := &fakeScreen{cells: map[[2]int]rune{}}
	keys := &keyboard{events: make(chan termbox.Event, 4), interrupt: make(chan struct{}, 1)}

	a, _, done := startApp(t, Config{Settings: settings, Screen: screen, Events: keys})

	waitFor(t, "avatar on screen", func() bool { return screen.contains('@') })
	waitFor(t, "local player claim", func() bool {
		s := a.Session()
		return s != nil && s.PlayerID() != ""
	})

	keys.press('d')
	expectFrame(t, received, "right")

	keys.press('q')
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean quit, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("quit key did not stop the app")
	}
}
