package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"territory/client/internal/net/proto"
	"territory/client/internal/telemetry"
	"territory/client/logging"
)

func mapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg := FromLookup(mapLookup(nil), nil)
	if cfg.ServerURL != "ws://localhost:8080/ws" {
		t.Fatalf("unexpected default url %q", cfg.ServerURL)
	}
	if cfg.ReconnectDelay != 5*time.Second {
		t.Fatalf("unexpected reconnect delay %s", cfg.ReconnectDelay)
	}
	if cfg.Shape != proto.ShapeBare || !cfg.SendClientID || !cfg.TerminalUI {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ClientID == "" {
		t.Fatalf("expected a generated client id")
	}
	if !cfg.Logging.HasSink("console") || cfg.Logging.MinimumSeverity != logging.SeverityInfo {
		t.Fatalf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.Logging.Console.FilePath != "client.log" {
		t.Fatalf("unexpected console file default %q", cfg.Logging.Console.FilePath)
	}
}

func TestFromLookupOverrides(t *testing.T) {
	cfg := FromLookup(mapLookup(map[string]string{
		"HOST":               "wss://game.example",
		"PORT":               "9443",
		"RECONNECT_DELAY_MS": "250",
		"OUTBOUND_SHAPE":     "signal",
		"PLAYER_NAME":        " ann ",
		"PLAYER_COLOR":       "#ff0000",
		"CLIENT_ID":          "fixed",
		"SEND_CLIENT_ID":     "false",
		"TERMINAL_UI":        "0",
		"GAMEPAD_DEVICE":     "/dev/input/js0",
		"LOG_SINKS":          "json, console",
		"LOG_JSON_FILE":      "out.jsonl",
		"LOG_LEVEL":          "DEBUG",
		"LOG_FILTER":         `Category == "render"`,
		"LOG_FILE":           "ui.log",
	}), nil)

	if cfg.ServerURL != "wss://game.example:9443/ws" {
		t.Fatalf("unexpected url %q", cfg.ServerURL)
	}
	if cfg.ReconnectDelay != 250*time.Millisecond || cfg.Shape != proto.ShapeSignal {
		t.Fatalf("unexpected transport config %+v", cfg)
	}
	if cfg.PlayerName != "ann" || cfg.PlayerColor != "#ff0000" || cfg.ClientID != "fixed" {
		t.Fatalf("unexpected identity config %+v", cfg)
	}
	if cfg.SendClientID || cfg.TerminalUI || cfg.GamepadDevice != "/dev/input/js0" {
		t.Fatalf("unexpected flags %+v", cfg)
	}
	if !cfg.Logging.HasSink("json") || !cfg.Logging.HasSink("console") {
		t.Fatalf("unexpected sinks %v", cfg.Logging.EnabledSinks)
	}
	if cfg.Logging.JSON.FilePath != "out.jsonl" || cfg.Logging.MinimumSeverity != logging.SeverityDebug {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.Console.FilePath != "ui.log" {
		t.Fatalf("expected LOG_FILE to set the console file, got %q", cfg.Logging.Console.FilePath)
	}
	if cfg.Logging.Filter != `Category == "render"` {
		t.Fatalf("unexpected filter %q", cfg.Logging.Filter)
	}
}

func TestServerURLWins(t *testing.T) {
	cfg := FromLookup(mapLookup(map[string]string{
		"SERVER_URL": "ws://10.0.0.1:1234/game",
		"HOST":       "ws://ignored",
	}), nil)
	if cfg.ServerURL != "ws://10.0.0.1:1234/game" {
		t.Fatalf("unexpected url %q", cfg.ServerURL)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	var complaints []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		complaints = append(complaints, format)
	})
	cfg := FromLookup(mapLookup(map[string]string{
		"RECONNECT_DELAY_MS": "soon",
		"OUTBOUND_SHAPE":     "smoke",
		"SEND_CLIENT_ID":     "maybe",
		"LOG_LEVEL":          "loud",
		"LOG_SINKS":          "console,syslog",
	}), logger)

	if cfg.ReconnectDelay != 5*time.Second || cfg.Shape != proto.ShapeBare || !cfg.SendClientID {
		t.Fatalf("invalid values should fall back to defaults: %+v", cfg)
	}
	if cfg.Logging.MinimumSeverity != logging.SeverityInfo {
		t.Fatalf("unexpected severity %v", cfg.Logging.MinimumSeverity)
	}
	if len(cfg.Logging.EnabledSinks) != 1 || cfg.Logging.EnabledSinks[0] != "console" {
		t.Fatalf("unexpected sinks %v", cfg.Logging.EnabledSinks)
	}
	if len(complaints) != 5 {
		t.Fatalf("expected 5 complaints, got %d: %v", len(complaints), complaints)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PLAYER_NAME=from-dotenv\nCLIENT_ID=dotenv-id\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("CLIENT_ID", "from-env")
	t.Setenv("PLAYER_NAME", "")
	os.Unsetenv("PLAYER_NAME")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	cfg := FromLookup(os.LookupEnv, nil)
	if cfg.PlayerName != "from-dotenv" {
		t.Fatalf("expected .env value, got %q", cfg.PlayerName)
	}
	if cfg.ClientID != "from-env" {
		t.Fatalf("real environment should win over .env, got %q", cfg.ClientID)
	}
}
