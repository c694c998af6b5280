// Package logging builds the hclog loggers used by msbtool.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Environment variables read by NewLogger and LogLevel.
const (
	LevelEnv = "MSBT_LOG_LEVEL"
	JSONEnv  = "MSBT_JSON_LOG"
)

// NewLogger creates an hclog logger writing to output, or stderr when output
// is nil. JSON output is selected with MSBT_JSON_LOG=1.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv(JSONEnv) == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// LogLevel returns the level from MSBT_LOG_LEVEL, falling back to def and
// then to "warn".
func LogLevel(def string) string {
	if level := os.Getenv(LevelEnv); level != "" {
		return level
	}
	if def != "" {
		return def
	}
	return "warn"
}
