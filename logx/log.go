package logx

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the process-wide logger.
var Log = log.Logger

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	Log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// SetLevel adjusts the global level from a config string. Unknown values are
// ignored so a bad config cannot silence the process.
func SetLevel(level string) {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return
	}
	zerolog.SetGlobalLevel(l)
}
