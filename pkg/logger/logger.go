// Package logger holds the process-wide zerolog logger.
//
// Call Init once from main, then Get anywhere else. Levels, lowest first:
// trace, debug, info, warn, error.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum log level. Unknown values fall back to info.
	Level string
	// Pretty switches to zerolog's console writer. Production keeps JSON.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service, when set, is attached to every entry as "service".
	Service string
}

var (
	mu          sync.Mutex
	instance    zerolog.Logger
	initialized bool
)

// Init builds the shared logger. Only the first call after start-up (or
// after Reset) has any effect; later calls return the existing logger.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return instance
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl := ParseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if lvl <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}

	instance = ctx.Logger()
	initialized = true
	return instance
}

// Get returns the shared logger. Panics if Init has not been called yet.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		panic("logger: Get() called before Init()")
	}
	return instance
}

// Reset drops the shared logger so the next Init rebuilds it. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = zerolog.Logger{}
	initialized = false
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

// ParseLevel maps a level name to a zerolog.Level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
