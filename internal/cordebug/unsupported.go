package cordebug

import "context"

// unsupportedConnector fails every session request. Builds without a
// native debugging backend wire it so the protocol surface still runs
// and reports a proper status for attach/launch attempts.
type unsupportedConnector struct{}

// NewUnsupportedConnector returns a Connector whose operations fail
// with StatusNotImpl.
func NewUnsupportedConnector() Connector {
	return unsupportedConnector{}
}

func (unsupportedConnector) Attach(context.Context, int, EventHandler) (Process, error) {
	return nil, NewError(StatusNotImpl, "no managed debugging backend in this build")
}

func (unsupportedConnector) Launch(context.Context, string, []string, string, EventHandler) (Process, error) {
	return nil, NewError(StatusNotImpl, "no managed debugging backend in this build")
}
