package term

import (
	"context"

	"github.com/nsf/termbox-go"

	"territory/client/internal/input"
)

// TranslateKey maps a termbox key event onto an input key.
func TranslateKey(ev termbox.Event) input.Key {
	if ev.Type != termbox.EventKey {
		return input.KeyNone
	}
	if ev.Ch != 0 {
		return input.KeyFromRune(ev.Ch)
	}
	switch ev.Key {
	case termbox.KeyArrowUp:
		return input.KeyUp
	case termbox.KeyArrowDown:
		return input.KeyDown
	case termbox.KeyArrowLeft:
		return input.KeyLeft
	case termbox.KeyArrowRight:
		return input.KeyRight
	case termbox.KeySpace:
		return input.KeyStop
	case termbox.KeyEsc:
		return input.KeyPause
	case termbox.KeyCtrlC:
		return input.KeyQuit
	default:
		return input.KeyNone
	}
}

// PollKeys forwards key presses to fn until ctx is done or the source
// reports an error. Resize events call onResize.
func PollKeys(ctx context.Context, src EventSource, fn func(input.Key), onResize func()) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			src.Interrupt()
		case <-stop:
		}
	}()

	for {
		ev := src.PollEvent()
		switch ev.Type {
		case termbox.EventKey:
			if key := TranslateKey(ev); key != input.KeyNone {
				fn(key)
			}
		case termbox.EventResize:
			if onResize != nil {
				onResize()
			}
		case termbox.EventError:
			return ev.Err
		case termbox.EventInterrupt:
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}
