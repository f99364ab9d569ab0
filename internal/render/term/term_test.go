package term

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nsf/termbox-go"

	"territory/client/internal/input"
	"territory/client/internal/mirror"
)

type fakeCell struct {
	ch     rune
	fg, bg termbox.Attribute
}

type fakeScreen struct {
	mu      sync.Mutex
	width   int
	height  int
	cells   map[[2]int]fakeCell
	flushes int
}

func newFakeScreen(width, height int) *fakeScreen {
	return &fakeScreen{width: width, height: height, cells: map[[2]int]fakeCell{}}
}

func (s *fakeScreen) Size() (int, int) { return s.width, s.height }

func (s *fakeScreen) Clear(fg, bg termbox.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = map[[2]int]fakeCell{}
	return nil
}

func (s *fakeScreen) SetCell(x, y int, ch rune, fg, bg termbox.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[[2]int{x, y}] = fakeCell{ch: ch, fg: fg, bg: bg}
}

func (s *fakeScreen) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *fakeScreen) cell(x, y int) fakeCell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cells[[2]int{x, y}]
}

func (s *fakeScreen) row(y int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for x := 0; x < s.width; x++ {
		ch := s.cells[[2]int{x, y}].ch
		if ch == 0 {
			ch = ' '
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func TestParseColorAndPalette(t *testing.T) {
	tests := []struct {
		raw   string
		index int
	}{
		{"#ff0000", 196},
		{"#f00", 196},
		{"#000000", 16},
		{"#ffffff", 231},
		{"blue", 21},
		{"#5f87af", 67},
		{"not-a-color", 15},
		{"#12345", 15},
	}
	for _, tc := range tests {
		if got := PaletteIndex(tc.raw); got != tc.index {
			t.Errorf("PaletteIndex(%q) = %d, want %d", tc.raw, got, tc.index)
		}
	}
	if Color("#ff0000") != termbox.Attribute(197) {
		t.Fatalf("expected palette index to be offset by one")
	}
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		ev   termbox.Event
		want input.Key
	}{
		{termbox.Event{Type: termbox.EventKey, Key: termbox.KeyArrowUp}, input.KeyUp},
		{termbox.Event{Type: termbox.EventKey, Key: termbox.KeyArrowDown}, input.KeyDown},
		{termbox.Event{Type: termbox.EventKey, Key: termbox.KeyArrowLeft}, input.KeyLeft},
		{termbox.Event{Type: termbox.EventKey, Key: termbox.KeyArrowRight}, input.KeyRight},
		{termbox.Event{Type: termbox.EventKey, Key: termbox.KeySpace}, input.KeyStop},
		{termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEsc}, input.KeyPause},
		{termbox.Event{Type: termbox.EventKey, Key: termbox.KeyCtrlC}, input.KeyQuit},
		{termbox.Event{Type: termbox.EventKey, Ch: 'd'}, input.KeyRight},
		{termbox.Event{Type: termbox.EventKey, Ch: 'z'}, input.KeyNone},
		{termbox.Event{Type: termbox.EventResize}, input.KeyNone},
	}
	for _, tc := range tests {
		if got := TranslateKey(tc.ev); got != tc.want {
			t.Errorf("TranslateKey(%+v) = %s, want %s", tc.ev, got, tc.want)
		}
	}
}

type scriptedEvents struct {
	events    chan termbox.Event
	interrupt chan struct{}
}

func (s *scriptedEvents) PollEvent() termbox.Event {
	select {
	case ev := <-s.events:
		return ev
	case <-s.interrupt:
		return termbox.Event{Type: termbox.EventInterrupt}
	}
}

func (s *scriptedEvents) Interrupt() {
	s.interrupt <- struct{}{}
}

func TestPollKeys(t *testing.T) {
	src := &scriptedEvents{events: make(chan termbox.Event, 4), interrupt: make(chan struct{})}
	src.events <- termbox.Event{Type: termbox.EventKey, Ch: 'w'}
	src.events <- termbox.Event{Type: termbox.EventResize}
	src.events <- termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEsc}

	ctx, cancel := context.WithCancel(context.Background())
	keys := make(chan input.Key, 4)
	resized := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- PollKeys(ctx, src, func(k input.Key) { keys <- k }, func() { resized <- struct{}{} })
	}()

	if k := <-keys; k != input.KeyUp {
		t.Fatalf("expected up, got %s", k)
	}
	<-resized
	if k := <-keys; k != input.KeyPause {
		t.Fatalf("expected pause, got %s", k)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("PollKeys did not stop")
	}
}

func TestPollKeysStopsOnError(t *testing.T) {
	boom := errors.New("tty gone")
	src := &scriptedEvents{events: make(chan termbox.Event, 1), interrupt: make(chan struct{}, 1)}
	src.events <- termbox.Event{Type: termbox.EventError, Err: boom}
	if err := PollKeys(context.Background(), src, func(input.Key) {}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected tty error, got %v", err)
	}
}

func TestRendererDrawsPlayers(t *testing.T) {
	screen := newFakeScreen(40, 12)
	r := NewRenderer(Options{
		Screen: screen,
		Status: func() string { return "connected" },
	})

	r.Mount(mirror.PlayerView{
		ID:        "p1",
		Name:      "ann",
		Color:     "#ff0000",
		Position:  mirror.Point{X: 40, Y: 60},
		Trail:     []mirror.Point{{X: 0, Y: 20}, {X: 20, Y: 20}},
		Territory: mirror.Grid{{true}},
	})

	drew, err := r.Frame()
	if err != nil || !drew {
		t.Fatalf("expected a frame, drew=%v err=%v", drew, err)
	}
	red := Color("#ff0000")

	if c := screen.cell(4, 3); c.ch != '@' {
		t.Fatalf("expected avatar at (4,3), got %q", c.ch)
	}
	if got := screen.row(3)[6:9]; got != "ann" {
		t.Fatalf("expected name after avatar, got %q", got)
	}
	if c := screen.cell(0, 0); c.ch != glyphTerritory || c.fg != red {
		t.Fatalf("expected territory at (0,0), got %+v", c)
	}
	if c := screen.cell(1, 0); c.ch != glyphTerritory {
		t.Fatalf("expected territory to span two columns, got %+v", c)
	}
	if c := screen.cell(0, 1); c.ch != glyphTrail || c.fg != red {
		t.Fatalf("expected trail at (0,1), got %+v", c)
	}
	if c := screen.cell(2, 1); c.ch != glyphTrail {
		t.Fatalf("expected trail at (2,1), got %+v", c)
	}
	if !strings.HasPrefix(screen.row(11), "connected") {
		t.Fatalf("expected status line, got %q", screen.row(11))
	}

	drew, _ = r.Frame()
	if drew {
		t.Fatalf("expected no redraw without changes")
	}
}

func TestRendererCenterCellIsSolid(t *testing.T) {
	screen := newFakeScreen(20, 6)
	r := NewRenderer(Options{Screen: screen})
	r.Mount(mirror.PlayerView{
		ID:        "p1",
		Color:     "#00ff00",
		Position:  mirror.Point{X: 25, Y: 25},
		Territory: mirror.Grid{{true, true}, {true, true}},
	})
	r.Frame()

	green := Color("#00ff00")
	if c := screen.cell(0, 0); c.bg != green {
		t.Fatalf("expected centre cell (0,0) to be filled, got %+v", c)
	}
	if c := screen.cell(2, 0); c.bg == green || c.ch != glyphTerritory {
		t.Fatalf("expected other cells to be shaded, got %+v", c)
	}
}

func TestRendererStartingTerritoryAndUnmount(t *testing.T) {
	screen := newFakeScreen(20, 8)
	r := NewRenderer(Options{Screen: screen})
	h := r.Mount(mirror.PlayerView{
		ID:                "p1",
		Color:             "#0000ff",
		Position:          mirror.Point{X: 200, Y: 200},
		StartingPosition:  mirror.Point{X: 40, Y: 40},
		StartingTerritory: mirror.Grid{{true}},
	})
	r.Frame()
	// Starting cell (0,0) sits at pixel (20,20), cell (1,1).
	if c := screen.cell(2, 1); c.ch != glyphStarting {
		t.Fatalf("expected starting territory at (2,1), got %+v", c)
	}

	r.Unmount(h)
	r.Frame()
	if c := screen.cell(2, 1); c.ch != 0 && c.ch != ' ' {
		t.Fatalf("expected starting territory to disappear, got %+v", c)
	}
}

func TestRendererFollowsLocalPlayer(t *testing.T) {
	screen := newFakeScreen(20, 11)
	r := NewRenderer(Options{Screen: screen, LocalID: func() string { return "me" }})
	r.Mount(mirror.PlayerView{ID: "me", Color: "#ffffff", Position: mirror.Point{X: 2000, Y: 2000}})
	r.Frame()

	// 10 map rows and 10 cell columns: the local player lands on row 5,
	// cell column 5.
	c := screen.cell(10, 5)
	if c.ch != '@' {
		t.Fatalf("expected local avatar mid-screen, got %+v", c)
	}
	if c.bg != Color("#ffffff") {
		t.Fatalf("expected local avatar to be highlighted, got %+v", c)
	}
}

func TestRendererPauseOverlayAndPaint(t *testing.T) {
	screen := newFakeScreen(30, 10)
	r := NewRenderer(Options{Screen: screen})
	h := r.Mount(mirror.PlayerView{ID: "p1", Position: mirror.Point{X: 0, Y: 0}})
	r.Frame()

	r.SetPaused(true)
	r.Frame()
	found := false
	for y := 0; y < 10; y++ {
		if strings.Contains(screen.row(y), "PAUSED") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected pause overlay")
	}

	r.SetPaused(false)
	r.Paint(h, mirror.PlayerView{ID: "p1", Position: mirror.Point{X: 60, Y: 0}})
	r.Frame()
	if c := screen.cell(6, 0); c.ch != '@' {
		t.Fatalf("expected repainted avatar at (6,0), got %+v", c)
	}
	if c := screen.cell(0, 0); c.ch == '@' {
		t.Fatalf("old avatar position was not cleared")
	}
	r.Paint("stale", mirror.PlayerView{ID: "ghost"})
}

func TestRendererRunCallsFrameHook(t *testing.T) {
	screen := newFakeScreen(10, 5)
	frames := make(chan struct{}, 8)
	r := NewRenderer(Options{
		Screen:        screen,
		FrameInterval: time.Millisecond,
		OnFrame: func(context.Context) {
			select {
			case frames <- struct{}{}:
			default:
			}
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-frames
	<-frames
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
