package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"territory/client/internal/net/proto"
	"territory/client/internal/net/ws"
	"territory/client/internal/telemetry"
	"territory/client/logging"
)

const (
	defaultHost = "ws://localhost"
	defaultPort = "8080"
	wsPath      = "/ws"
)

// Config is everything the client reads from its environment.
type Config struct {
	ServerURL      string
	ReconnectDelay time.Duration
	Shape          proto.Shape
	PlayerName     string
	PlayerColor    string
	ClientID       string
	SendClientID   bool
	TerminalUI     bool
	GamepadDevice  string
	Logging        logging.Config
}

func Default() Config {
	return Config{
		ServerURL:      defaultHost + ":" + defaultPort + wsPath,
		ReconnectDelay: ws.DefaultReconnectDelay,
		Shape:          proto.ShapeBare,
		SendClientID:   true,
		TerminalUI:     true,
		Logging:        logging.DefaultConfig(),
	}
}

// Lookup matches os.LookupEnv.
type Lookup func(key string) (string, bool)

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding the real environment. Missing files are not
// an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads .env and then the process environment.
func Load(logger telemetry.Logger) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromLookup(os.LookupEnv, logger), nil
}

// FromLookup builds a Config from variables. Invalid values are reported
// through logger and replaced by their defaults.
func FromLookup(lookup Lookup, logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.Discard
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		value, _ := lookup(key)
		return strings.TrimSpace(value)
	}

	cfg := Default()

	if raw := get("SERVER_URL"); raw != "" {
		cfg.ServerURL = raw
	} else {
		host, port := get("HOST"), get("PORT")
		if host == "" {
			host = defaultHost
		}
		if port == "" {
			port = defaultPort
		}
		cfg.ServerURL = host + ":" + port + wsPath
	}

	if raw := get("RECONNECT_DELAY_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ReconnectDelay = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid RECONNECT_DELAY_MS=%q, using %s", raw, cfg.ReconnectDelay)
		}
	}

	if raw := get("OUTBOUND_SHAPE"); raw != "" {
		if shape, ok := proto.ParseShape(raw); ok {
			cfg.Shape = shape
		} else {
			logger.Printf("invalid OUTBOUND_SHAPE=%q, using %s", raw, cfg.Shape)
		}
	}

	cfg.PlayerName = get("PLAYER_NAME")
	cfg.PlayerColor = get("PLAYER_COLOR")

	cfg.ClientID = get("CLIENT_ID")
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}

	cfg.SendClientID = parseBool(get, logger, "SEND_CLIENT_ID", cfg.SendClientID)
	cfg.TerminalUI = parseBool(get, logger, "TERMINAL_UI", cfg.TerminalUI)
	cfg.GamepadDevice = get("GAMEPAD_DEVICE")

	cfg.Logging = loggingFromLookup(get, logger, cfg.Logging)
	return cfg
}

func parseBool(get func(string) string, logger telemetry.Logger, key string, fallback bool) bool {
	raw := get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return fallback
	}
	return value
}

func loggingFromLookup(get func(string) string, logger telemetry.Logger, cfg logging.Config) logging.Config {
	if raw := get("LOG_SINKS"); raw != "" {
		var sinks []string
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			switch name {
			case "":
			case "console", "json":
				sinks = append(sinks, name)
			default:
				logger.Printf("ignoring unknown log sink %q", name)
			}
		}
		cfg.EnabledSinks = sinks
	}
	if raw := get("LOG_FILE"); raw != "" {
		cfg.Console.FilePath = raw
	}
	if raw := get("LOG_JSON_FILE"); raw != "" {
		cfg.JSON.FilePath = raw
	}
	if raw := get("LOG_LEVEL"); raw != "" {
		if sev, ok := logging.ParseSeverity(strings.ToLower(raw)); ok {
			cfg.MinimumSeverity = sev
		} else {
			logger.Printf("invalid LOG_LEVEL=%q, using %s", raw, cfg.MinimumSeverity)
		}
	}
	cfg.Filter = get("LOG_FILTER")
	return cfg
}
