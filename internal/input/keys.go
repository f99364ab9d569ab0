package input

import (
	"unicode"

	"territory/client/internal/net/proto"
)

// Key is a device-independent key the controller understands.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyStop
	KeyPause
	KeyQuit
)

var keyNames = map[Key]string{
	KeyNone:  "none",
	KeyUp:    "up",
	KeyDown:  "down",
	KeyLeft:  "left",
	KeyRight: "right",
	KeyStop:  "stop",
	KeyPause: "pause",
	KeyQuit:  "quit",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// KeyFromRune maps printable keys: WASD for movement, space to stop, q to
// quit. Letters are matched case-insensitively so caps lock does not
// break steering.
func KeyFromRune(r rune) Key {
	switch unicode.ToLower(r) {
	case 'w':
		return KeyUp
	case 's':
		return KeyDown
	case 'a':
		return KeyLeft
	case 'd':
		return KeyRight
	case ' ':
		return KeyStop
	case 'q':
		return KeyQuit
	default:
		return KeyNone
	}
}

// Direction returns the move a key requests, if any.
func (k Key) Direction() (proto.Direction, bool) {
	switch k {
	case KeyUp:
		return proto.DirectionUp, true
	case KeyDown:
		return proto.DirectionDown, true
	case KeyLeft:
		return proto.DirectionLeft, true
	case KeyRight:
		return proto.DirectionRight, true
	case KeyStop:
		return proto.DirectionStop, true
	default:
		return "", false
	}
}
