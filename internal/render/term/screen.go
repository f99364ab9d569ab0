package term

import (
	"fmt"

	"github.com/nsf/termbox-go"
)

// Screen is the drawing surface the renderer paints onto.
type Screen interface {
	Size() (width, height int)
	Clear(fg, bg termbox.Attribute) error
	SetCell(x, y int, ch rune, fg, bg termbox.Attribute)
	Flush() error
}

// EventSource delivers terminal input events.
type EventSource interface {
	PollEvent() termbox.Event
	Interrupt()
}

// Terminal is the real termbox-backed screen and event source. termbox is
// process global, so only one may be open at a time.
type Terminal struct{}

// Open takes over the terminal in 256-colour mode.
func Open() (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)
	termbox.SetOutputMode(termbox.Output256)
	return &Terminal{}, nil
}

func (*Terminal) Size() (int, int) {
	return termbox.Size()
}

func (*Terminal) Clear(fg, bg termbox.Attribute) error {
	return termbox.Clear(fg, bg)
}

func (*Terminal) SetCell(x, y int, ch rune, fg, bg termbox.Attribute) {
	termbox.SetCell(x, y, ch, fg, bg)
}

func (*Terminal) Flush() error {
	return termbox.Flush()
}

func (*Terminal) PollEvent() termbox.Event {
	return termbox.PollEvent()
}

func (*Terminal) Interrupt() {
	termbox.Interrupt()
}

// Close restores the terminal.
func (*Terminal) Close() {
	termbox.Close()
}
