package mi

import (
	"fmt"

	"github.com/rafttio/netcoredbg/internal/cordebug"
	"github.com/rafttio/netcoredbg/internal/debugger"
)

// EventEmitter renders engine events into asynchronous protocol
// records: one event value, one record, immediately. It keeps no state
// of its own; line atomicity comes from the shared Writer.
type EventEmitter struct {
	out *Writer
}

// NewEventEmitter creates an emitter writing records to out.
func NewEventEmitter(out *Writer) *EventEmitter {
	return &EventEmitter{out: out}
}

// Stopped implements debugger.EventSink.
func (e *EventEmitter) Stopped(ev debugger.StoppedEvent) {
	frame := formatFrameLocation(ev.Frame)

	switch ev.Reason {
	case cordebug.StopBreakpoint:
		var id, times uint32
		if ev.Breakpoint != nil {
			id, times = ev.Breakpoint.ID, ev.Breakpoint.HitCount
		}
		e.out.Printf(`*stopped,reason="breakpoint-hit",thread-id="%d",stopped-threads="all",bkptno="%d",times="%d",frame={%s}`,
			ev.ThreadID, id, times, frame)
	case cordebug.StopStep:
		e.out.Printf(`*stopped,reason="end-stepping-range",thread-id="%d",stopped-threads="all",frame={%s}`,
			ev.ThreadID, frame)
	case cordebug.StopException:
		e.out.Printf(`*stopped,reason="exception-received",exception-name="%s",exception="%s",exception-stage="%s",exception-category="%s",thread-id="%d",stopped-threads="all",frame={%s}`,
			EscapeValue(ev.ExceptionName), EscapeValue(ev.ExceptionDescription),
			"unhandled", "clr", ev.ThreadID, frame)
	case cordebug.StopPause:
		e.out.WriteLine(`*stopped,reason="interrupted",stopped-threads="all"`)
	}
}

// Exited implements debugger.EventSink.
func (e *EventEmitter) Exited(exitCode int) {
	e.out.Printf(`*stopped,reason="exited",exit-code="%d"`, exitCode)
}

// ThreadChanged implements debugger.EventSink.
func (e *EventEmitter) ThreadChanged(ev cordebug.ThreadEvent) {
	reason := "thread-created"
	if ev.Reason == cordebug.ThreadExited {
		reason = "thread-exited"
	}
	e.out.Printf(`=%s,id="%d"`, reason, ev.ThreadID)
}

// Output implements debugger.EventSink. Debuggee output is escaped and
// forwarded as a message record, tagged with its source channel when
// one is known.
func (e *EventEmitter) Output(ev cordebug.OutputEvent) {
	source := ""
	if ev.Source != "" {
		source = fmt.Sprintf(`,source="%s"`, EscapeValue(ev.Source))
	}
	e.out.Printf(`=message,text="%s",send-to="output-window"%s`, EscapeValue(ev.Output), source)
}

// BreakpointModified implements debugger.EventSink.
func (e *EventEmitter) BreakpointModified(bp debugger.Breakpoint) {
	e.out.Printf(`=breakpoint-modified,%s`, formatBreakpoint(bp))
}
