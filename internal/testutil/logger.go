// Package testutil provides shared helpers for package tests.
package testutil

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a logger for tests. Output goes to t.Log when
// tests run verbose and is discarded otherwise, so failing runs can be
// re-run with -v to see engine diagnostics.
func NewTestLogger(t *testing.T) zerolog.Logger {
	var out io.Writer = io.Discard
	if testing.Verbose() {
		out = &tLogWriter{t: t}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

type tLogWriter struct {
	t *testing.T
}

func (w *tLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
