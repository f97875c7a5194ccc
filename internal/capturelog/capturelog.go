// Package capturelog wires zerolog into every backend. It generalizes the
// teacher's env-var-gated debug logger (capture/debug.go, SCREENCAST_DEBUG)
// into a structured, leveled logger in the style of
// bryanchriswhite-FocusStreamer/internal/logger: one global base logger,
// per-component children via For.
package capturelog

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

func initBase() {
	level := zerolog.InfoLevel
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SCREENCAP_LOG"))) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "disabled", "off", "none":
		level = zerolog.Disabled
	}

	base = zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// For returns a logger scoped to component (e.g. "windows", "x11shm",
// "pipewire"), lazily initializing the shared base logger from the
// SCREENCAP_LOG environment variable on first use.
func For(component string) zerolog.Logger {
	once.Do(initBase)
	return base.With().Str("component", component).Logger()
}
