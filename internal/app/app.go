package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"territory/client/internal/config"
	"territory/client/internal/input"
	"territory/client/internal/mirror"
	"territory/client/internal/net/proto"
	"territory/client/internal/net/ws"
	"territory/client/internal/reconcile"
	"territory/client/internal/render"
	"territory/client/internal/render/term"
	"territory/client/internal/telemetry"
	"territory/client/logging"
	loggingSinks "territory/client/logging/sinks"
)

const (
	shutdownTimeout = 3 * time.Second
	debugInterval   = 5 * time.Second
)

type Config struct {
	Logger   telemetry.Logger
	Settings config.Config
	// Screen and Events replace the real terminal when set. Events may be
	// nil, in which case keyboard input is disabled.
	Screen term.Screen
	Events term.EventSource
	Dialer *websocket.Dialer
	// Sinks are added to the logging router next to the configured ones.
	Sinks []logging.NamedSink
}

// App owns every long-lived component of the client.
type App struct {
	settings config.Config
	logger   telemetry.Logger
	counters *telemetry.Counters
	router   *logging.Router

	reconciler *reconcile.Reconciler
	queue      *render.Queue
	renderer   *term.Renderer
	client     *ws.Client
	controller *input.Controller
	poller     *input.Poller

	terminal *term.Terminal
	events   term.EventSource
	closers  []io.Closer

	quit      chan struct{}
	quitOnce  sync.Once
	closeOnce sync.Once
}

// Run builds the client from cfg and runs it until ctx is cancelled or the
// player quits.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			a.logger.Printf("shutdown: %v", cerr)
		}
	}()
	return a.Run(ctx)
}

func New(cfg Config) (*App, error) {
	settings := cfg.Settings
	a := &App{
		settings: settings,
		counters: telemetry.NewCounters(),
		quit:     make(chan struct{}),
	}

	var consoleOut io.Writer = os.Stdout
	telemetryLogger := cfg.Logger
	if path := settings.Logging.Console.FilePath; settings.TerminalUI && path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		consoleOut = f
		if telemetryLogger == nil {
			telemetryLogger = telemetry.WrapLogger(log.New(f, "", log.LstdFlags))
		}
	}
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	a.logger = telemetryLogger

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	sinks, err := a.buildSinks(settings.Logging, consoleOut)
	if err != nil {
		a.closeFiles()
		return nil, err
	}
	sinks = append(sinks, cfg.Sinks...)
	router, err := logging.NewRouter(nil, settings.Logging, fallbackLogger, sinks)
	if err != nil {
		for _, named := range sinks {
			_ = named.Sink.Close(context.Background())
		}
		a.closeFiles()
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	a.router = router

	screen, events := cfg.Screen, cfg.Events
	if screen == nil && settings.TerminalUI {
		terminal, err := term.Open()
		if err != nil {
			_ = router.Close(context.Background())
			a.closeFiles()
			return nil, err
		}
		a.terminal = terminal
		screen, events = terminal, terminal
	}
	a.events = events

	visual := render.Tee{render.NewEventSink(context.Background(), router)}
	if screen != nil {
		a.renderer = term.NewRenderer(term.Options{
			Screen:  screen,
			LocalID: a.localID,
			Status:  a.status,
			OnFrame: a.pollGamepad,
		})
		a.queue = render.NewQueue(a.renderer)
		visual = append(visual, a.queue)
	}

	a.reconciler = reconcile.New(visual, reconcile.Options{
		Logger:    telemetryLogger,
		Publisher: router,
		Counters:  a.counters,
	})

	a.client = ws.NewClient(ws.Config{
		URL:            settings.ServerURL,
		ClientID:       settings.ClientID,
		SendClientID:   settings.SendClientID,
		ReconnectDelay: settings.ReconnectDelay,
		Shape:          settings.Shape,
		Dialer:         cfg.Dialer,
		Logger:         telemetryLogger,
		Publisher:      router,
		Counters:       a.counters,
	}, a)

	a.controller = input.NewController(input.ControllerConfig{
		Sender:    a.client,
		Logger:    telemetryLogger,
		Publisher: router,
		Counters:  a.counters,
		Name:      settings.PlayerName,
		Color:     settings.PlayerColor,
		OnPause:   a.setPaused,
		OnQuit:    a.requestQuit,
	})

	if settings.GamepadDevice != "" {
		js, err := input.OpenJoystick(settings.GamepadDevice)
		if err != nil {
			telemetryLogger.Printf("gamepad disabled: %v", err)
		} else {
			a.closers = append(a.closers, js)
			a.poller = input.NewPoller(js, a.controller)
		}
	}
	return a, nil
}

func (a *App) buildSinks(cfg logging.Config, consoleOut io.Writer) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(consoleOut)})
	}
	if cfg.HasSink("json") {
		f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			for _, named := range sinks {
				_ = named.Sink.Close(context.Background())
			}
			return nil, fmt.Errorf("open json log: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(f, cfg.JSON.FlushInterval)})
	}
	return sinks, nil
}

// Run starts the transport, the renderer and the input sources and blocks
// until ctx is done, the player quits or a component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	a.logger.Printf("client connecting to %s as %s", a.settings.ServerURL, a.settings.ClientID)
	start("transport", a.client.Run)
	if a.renderer != nil {
		start("renderer", a.renderer.Run)
	}
	if a.events != nil {
		start("keyboard", a.pollKeys)
	}
	if a.poller != nil {
		start("gamepad", func(ctx context.Context) error {
			a.poller.Run(ctx, input.PollInterval)
			return nil
		})
	}
	if a.counters.DebugEnabled() {
		start("telemetry", a.reportTelemetry)
	}

	select {
	case <-ctx.Done():
	case <-a.quit:
		a.logger.Printf("quit requested")
	}
	cancel()
	wg.Wait()
	close(errs)
	return <-errs
}

// Close releases the terminal, drains the paint queue and flushes the log
// sinks. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	a.closeOnce.Do(func() {
		if a.queue != nil {
			if err := a.queue.Close(ctx); err != nil {
				firstErr = err
			}
		}
		if a.terminal != nil {
			a.terminal.Close()
		}
		if err := a.router.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close logging router: %w", err)
		}
		a.closeFiles()
	})
	return firstErr
}

func (a *App) closeFiles() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

// Connected clears the mirror; the server repopulates it on a new session.
func (a *App) Connected(ctx context.Context, s *ws.Session) {
	if n := a.reconciler.Reset(ctx); n > 0 {
		a.logger.Printf("cleared %d players for resync on session %s", n, s.ID)
	}
}

// Message applies one frame and claims the local player id from the first
// matching player instruction. A burst of bad instructions forces a
// reconnect.
func (a *App) Message(ctx context.Context, s *ws.Session, messageType int, data []byte) {
	inst, err := a.reconciler.ApplyFrame(ctx, messageType, data)
	if err != nil && !reconcile.IsIgnorable(err) {
		a.logger.Printf("instruction failed: %v", err)
	}
	if err == nil && (inst.Type == proto.TypeNewPlayer || inst.Type == proto.TypeUpdatePlayer) {
		if s.ObservePlayer(ctx, inst.Payload.ID) {
			a.logger.Printf("playing as %s", inst.Payload.ID)
			a.markDirty()
		}
	}
	if signal, ok := a.reconciler.ResyncRequested(ctx); ok {
		a.logger.Printf("resyncing: %s", signal.Summary())
		a.client.Reconnect("resync: " + signal.Summary())
	}
}

func (a *App) Disconnected(ctx context.Context, s *ws.Session, err error) {
	a.markDirty()
}

// Players returns the mirrored views in mount order.
func (a *App) Players() []mirror.PlayerView {
	return a.reconciler.Views()
}

// Controller exposes the input controller driving this app.
func (a *App) Controller() *input.Controller {
	return a.controller
}

// Session returns the live transport session, or nil.
func (a *App) Session() *ws.Session {
	return a.client.Session()
}

func (a *App) Counters() telemetry.Snapshot {
	return a.counters.Snapshot()
}

func (a *App) pollKeys(ctx context.Context) error {
	return term.PollKeys(ctx, a.events, func(key input.Key) {
		a.controller.HandleKey(ctx, key)
	}, a.markDirty)
}

func (a *App) pollGamepad(ctx context.Context) {
	a.poller.Poll(ctx)
}

func (a *App) reportTelemetry(ctx context.Context) error {
	ticker := time.NewTicker(debugInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := a.router.Stats()
			a.logger.Printf("telemetry %s events=%d dropped=%d by_category=%v", a.counters.Snapshot(), stats.EventsTotal, stats.DroppedTotal, stats.ByCategory)
		}
	}
}

func (a *App) localID() string {
	if s := a.client.Session(); s != nil {
		return s.PlayerID()
	}
	return ""
}

func (a *App) status() string {
	snap := a.counters.Snapshot()
	state := "connecting to " + a.settings.ServerURL
	if s := a.client.Session(); s != nil {
		state = "online"
		if id := s.PlayerID(); id != "" {
			state += " as " + id
		}
	}
	line := fmt.Sprintf(" %s | players %d", state, snap.Players)
	if snap.Reconnects > 0 {
		line += fmt.Sprintf(" | reconnects %d", snap.Reconnects)
	}
	if a.counters.DebugEnabled() {
		line += " | " + snap.String()
	}
	return line + " | wasd move, space stop, esc pause, q quit"
}

func (a *App) setPaused(paused bool) {
	if a.renderer != nil {
		a.renderer.SetPaused(paused)
	}
}

func (a *App) markDirty() {
	if a.renderer != nil {
		a.renderer.MarkDirty()
	}
}

func (a *App) requestQuit() {
	a.quitOnce.Do(func() { close(a.quit) })
}
