// Package logger provides a global logger for the tagdfa modules, wrapping
// zerolog. Components never import zerolog directly; they call logger.Logger()
// and chain zerolog's fluent API from there.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	log  zerolog.Logger
	lock sync.RWMutex
)

func init() {
	log = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Logger returns the global logger used by the tagdfa packages.
func Logger() zerolog.Logger {
	lock.RLock()
	defer lock.RUnlock()
	return log
}

// SetOutput redirects the global logger to w (tests use this to capture
// output instead of writing to stdout).
func SetOutput(w io.Writer) {
	lock.Lock()
	defer lock.Unlock()
	log = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the minimum level the global logger emits.
func SetLevel(lvl zerolog.Level) {
	lock.Lock()
	defer lock.Unlock()
	log = log.Level(lvl)
}
