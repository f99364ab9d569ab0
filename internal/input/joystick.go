package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
)

// Linux joystick API event layout (linux/joystick.h, struct js_event).
const (
	jsEventSize = 8
	jsEventAxis = 0x02
	jsEventInit = 0x80
	jsAxisMax   = 32767
)

type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// Joystick reads stick axes from a Linux joystick device such as
// /dev/input/js0.
type Joystick struct {
	r    io.ReadCloser
	mu   sync.Mutex
	x, y float64
	ok   bool
	err  error
	done chan struct{}
}

// OpenJoystick opens path and starts reading events.
func OpenJoystick(path string) (*Joystick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open joystick %s: %w", path, err)
	}
	return NewJoystick(f), nil
}

// NewJoystick reads js_event records from r until it fails or is closed.
func NewJoystick(r io.ReadCloser) *Joystick {
	j := &Joystick{r: r, done: make(chan struct{})}
	go j.read()
	return j
}

func (j *Joystick) read() {
	defer close(j.done)
	buf := make([]byte, jsEventSize)
	for {
		if _, err := io.ReadFull(j.r, buf); err != nil {
			j.mu.Lock()
			j.ok = false
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				j.err = err
			}
			j.mu.Unlock()
			return
		}
		j.apply(decodeJSEvent(buf))
	}
}

func decodeJSEvent(b []byte) jsEvent {
	return jsEvent{
		Time:   binary.LittleEndian.Uint32(b[0:4]),
		Value:  int16(binary.LittleEndian.Uint16(b[4:6])),
		Type:   b[6],
		Number: b[7],
	}
}

func (j *Joystick) apply(ev jsEvent) {
	kind := ev.Type &^ jsEventInit
	if kind != jsEventAxis {
		return
	}
	value := math.Max(-1, float64(ev.Value)/jsAxisMax)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ok = true
	switch ev.Number {
	case 0:
		j.x = value
	case 1:
		j.y = value
	}
}

// Axes implements AxisSource.
func (j *Joystick) Axes() (float64, float64, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.x, j.y, j.ok
}

// Err reports why reading stopped, if it stopped on an error.
func (j *Joystick) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Close releases the device and waits for the reader to exit.
func (j *Joystick) Close() error {
	err := j.r.Close()
	<-j.done
	return err
}
