package mi

import (
	"fmt"
	"io"
	"sync"
)

// Writer serializes all protocol output through one stream. Synchronous
// replies and asynchronous records share it, so no record is ever
// interleaved mid-line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w as the protocol output stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine emits one complete protocol line. Stream failures are not
// recoverable at this layer and are deliberately dropped.
func (w *Writer) WriteLine(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = io.WriteString(w.w, line+"\n")
}

// Printf formats and emits one complete protocol line.
func (w *Writer) Printf(format string, args ...any) {
	w.WriteLine(fmt.Sprintf(format, args...))
}
