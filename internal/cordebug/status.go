package cordebug

import (
	"errors"
	"fmt"
)

// Status is a native debugging interface failure code. Values follow the
// HRESULT convention used by the managed runtime's debugging services so
// protocol clients see the codes they expect.
type Status uint32

const (
	StatusFail       Status = 0x80004005
	StatusAbort      Status = 0x80004004
	StatusNotImpl    Status = 0x80004001
	StatusInvalidArg Status = 0x80070057
)

// Error carries a Status plus an optional human-readable detail.
type Error struct {
	Status Status
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("debug capability error 0x%08x", uint32(e.Status))
	}
	return fmt.Sprintf("debug capability error 0x%08x: %s", uint32(e.Status), e.Detail)
}

// NewError creates an Error with the given status and detail.
func NewError(status Status, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

// Failf creates a StatusFail error with a formatted detail.
func Failf(format string, args ...any) *Error {
	return &Error{Status: StatusFail, Detail: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the Status from an error chain. Errors that do not
// carry a Status map to StatusFail.
func StatusOf(err error) Status {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return StatusFail
}

// DetailOf extracts the detail text from an error chain. Errors that do
// not carry a Status yield their plain message.
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Detail
	}
	return err.Error()
}
