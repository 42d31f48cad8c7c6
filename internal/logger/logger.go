// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Development gets the colorized
// console writer, production gets JSON lines on stderr.
func Init(level string, production bool) {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if production {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339

	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a level name onto a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
