// Package observe wires structured logging for the engine.
package observe

import (
	"io"

	"github.com/felixgeelhaar/bolt/v3"
)

// Observer owns the engine's logger.
type Observer struct {
	log *bolt.Logger
}

// New creates an Observer with console output. Unless verbose is set,
// only warnings and errors are shown.
func New(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewConsoleHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l}
}

// NewJSON creates an Observer with JSON output.
func NewJSON(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewJSONHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l}
}

// Log returns the underlying logger.
func (o *Observer) Log() *bolt.Logger {
	return o.log
}
