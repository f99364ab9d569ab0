package input

import (
	"context"
	"sync"

	"territory/client/internal/net/proto"
	"territory/client/internal/telemetry"
	"territory/client/logging"
	logginginput "territory/client/logging/input"
)

// Sender delivers outbound messages to the server.
type Sender interface {
	SendMove(ctx context.Context, dir proto.Direction) error
	SendCustomization(ctx context.Context, name, color string) error
}

// Sources identify where a move came from in logs and events.
const (
	SourceKeyboard = "keyboard"
	SourceGamepad  = "gamepad"
)

type ControllerConfig struct {
	Sender    Sender
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Counters  *telemetry.Counters
	// Name and Color are pushed to the server when the player resumes
	// from the pause overlay. Both empty disables customization.
	Name  string
	Color string
	// OnPause is called with the new state whenever pause toggles.
	OnPause func(paused bool)
	// OnQuit is called once when the quit key is pressed.
	OnQuit func()
}

// Controller turns keys and gamepad directions into outbound messages.
// It shares no state with the reconciler; the sender looks up the local
// player id on its own.
type Controller struct {
	sender   Sender
	logger   telemetry.Logger
	pub      logging.Publisher
	counters *telemetry.Counters
	onPause  func(bool)
	onQuit   func()
	quitOnce sync.Once

	mu     sync.Mutex
	paused bool
	name   string
	color  string
}

func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Controller{
		sender:   cfg.Sender,
		logger:   logger,
		pub:      pub,
		counters: cfg.Counters,
		onPause:  cfg.OnPause,
		onQuit:   cfg.OnQuit,
		name:     cfg.Name,
		color:    cfg.Color,
	}
}

// HandleKey reacts to one key press.
func (c *Controller) HandleKey(ctx context.Context, key Key) {
	switch key {
	case KeyPause:
		c.TogglePause(ctx)
	case KeyQuit:
		c.quitOnce.Do(func() {
			if c.onQuit != nil {
				c.onQuit()
			}
		})
	default:
		if dir, ok := key.Direction(); ok {
			c.Move(ctx, dir, SourceKeyboard)
		}
	}
}

// Move sends a direction. Movement keeps working while the pause overlay
// is open; the overlay is cosmetic.
func (c *Controller) Move(ctx context.Context, dir proto.Direction, source string) {
	payload := logginginput.MovePayload{Direction: string(dir), Source: source}
	if c.sender == nil {
		c.drop(ctx, payload, "no sender")
		return
	}
	if err := c.sender.SendMove(ctx, dir); err != nil {
		c.drop(ctx, payload, err.Error())
		return
	}
	c.counters.RecordMove(true)
	logginginput.MoveSent(ctx, c.pub, payload, nil)
}

func (c *Controller) drop(ctx context.Context, payload logginginput.MovePayload, reason string) {
	payload.Reason = reason
	c.counters.RecordMove(false)
	c.logger.Printf("[input] dropping %s move from %s: %s", payload.Direction, payload.Source, reason)
	logginginput.MoveDropped(ctx, c.pub, payload, nil)
}

// TogglePause flips the pause overlay. Resuming pushes the configured name
// and color, matching the resume button of the browser client.
func (c *Controller) TogglePause(ctx context.Context) bool {
	c.mu.Lock()
	c.paused = !c.paused
	paused := c.paused
	name, color := c.name, c.color
	c.mu.Unlock()

	logginginput.PauseToggled(ctx, c.pub, logginginput.PausePayload{Paused: paused}, nil)
	if c.onPause != nil {
		c.onPause(paused)
	}
	if !paused && (name != "" || color != "") {
		c.sendCustomization(ctx, name, color)
	}
	return paused
}

// SetCustomization replaces the name and color sent on resume.
func (c *Controller) SetCustomization(name, color string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	c.color = color
}

func (c *Controller) sendCustomization(ctx context.Context, name, color string) {
	if c.sender == nil {
		return
	}
	if err := c.sender.SendCustomization(ctx, name, color); err != nil {
		c.logger.Printf("[input] customization not sent: %v", err)
		return
	}
	logginginput.CustomizationSent(ctx, c.pub, logginginput.CustomizationPayload{Name: name, Color: color}, nil)
}

func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
