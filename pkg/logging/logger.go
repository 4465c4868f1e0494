// Package logging configures the gateway's structured zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line written by the gateway.
const ServiceName = "github-orgs-gateway"

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
// Unknown levels fall back to info; use ParseLevel to reject them up front.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()

	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to a zerolog.Level.
// Matching is case-insensitive and "warning" is accepted for warn.
func ParseLevel(level LogLevel) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Every upstream page fetch (url, status, items)
//   - Rate limit state updates while the budget is healthy
//   - Traversal completion details
//
// Info: Normal operation events
//   - Inbound requests served
//   - Server startup/shutdown
//   - Configuration source
//
// Warn: Warning conditions that don't prevent operation
//   - Upstream rate limit running low
//   - Cycles and malformed Link headers ending a traversal
//   - Inbound requests answered with 4xx
//
// Error: Error conditions requiring attention
//   - Failed traversals and upstream errors
//   - Upstream rate limit exhausted
//   - Redis unavailable
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (client, pagination, gateway, api)
//   - request_id: inbound request ID (X-Request-ID)
//   - route: upstream path with organization names normalized
//   - status_code: HTTP status code
//   - duration: request duration
//   - error_class: error classification (client, server, rate_limit, network)
//   - pages: pages consumed by a traversal
//   - resource: upstream rate limit resource
