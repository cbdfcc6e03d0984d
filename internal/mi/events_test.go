package mi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rafttio/netcoredbg/internal/cordebug"
	"github.com/rafttio/netcoredbg/internal/debugger"
)

func newTestEmitter() (*EventEmitter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewEventEmitter(NewWriter(&buf)), &buf
}

func TestEmitStopped_BreakpointHit(t *testing.T) {
	e, buf := newTestEmitter()

	e.Stopped(debugger.StoppedEvent{
		Reason:   cordebug.StopBreakpoint,
		ThreadID: 1,
		Frame: cordebug.FrameLocation{
			SourceName: "file.cs", SourcePath: "/src/file.cs",
			Line: 10, Column: 1, EndLine: 10, EndColumn: 2, FuncName: "Prog.Main()",
		},
		Breakpoint: &debugger.Breakpoint{ID: 2, HitCount: 3},
	})

	assert.Equal(t,
		`*stopped,reason="breakpoint-hit",thread-id="1",stopped-threads="all",bkptno="2",times="3",`+
			`frame={file="file.cs",fullname="/src/file.cs",line="10",col="1",end-line="10",end-col="2",func="Prog.Main()"}`+"\n",
		buf.String())
}

func TestEmitStopped_StepComplete(t *testing.T) {
	e, buf := newTestEmitter()

	e.Stopped(debugger.StoppedEvent{
		Reason:   cordebug.StopStep,
		ThreadID: 2,
		Frame:    cordebug.FrameLocation{FuncName: "Prog.Next()"},
	})

	assert.Equal(t, `*stopped,reason="end-stepping-range",thread-id="2",stopped-threads="all",frame={func="Prog.Next()"}`+"\n", buf.String())
}

func TestEmitStopped_Exception(t *testing.T) {
	e, buf := newTestEmitter()

	e.Stopped(debugger.StoppedEvent{
		Reason:               cordebug.StopException,
		ThreadID:             1,
		ExceptionName:        "System.DivideByZeroException",
		ExceptionDescription: `Attempted to divide by "zero"`,
	})

	out := buf.String()
	assert.Contains(t, out, `reason="exception-received"`)
	assert.Contains(t, out, `exception-name="System.DivideByZeroException"`)
	assert.Contains(t, out, `exception="Attempted to divide by \"zero\""`)
	assert.Contains(t, out, `exception-stage="unhandled"`)
	assert.Contains(t, out, `exception-category="clr"`)
}

func TestEmitStopped_Interrupted(t *testing.T) {
	e, buf := newTestEmitter()

	e.Stopped(debugger.StoppedEvent{Reason: cordebug.StopPause})

	assert.Equal(t, `*stopped,reason="interrupted",stopped-threads="all"`+"\n", buf.String())
}

func TestEmitExited(t *testing.T) {
	e, buf := newTestEmitter()

	e.Exited(3)

	assert.Equal(t, `*stopped,reason="exited",exit-code="3"`+"\n", buf.String())
}

func TestEmitThreadEvents(t *testing.T) {
	e, buf := newTestEmitter()

	e.ThreadChanged(cordebug.ThreadEvent{Reason: cordebug.ThreadStarted, ThreadID: 5})
	e.ThreadChanged(cordebug.ThreadEvent{Reason: cordebug.ThreadExited, ThreadID: 5})

	assert.Equal(t, `=thread-created,id="5"`+"\n"+`=thread-exited,id="5"`+"\n", buf.String())
}

func TestEmitOutput(t *testing.T) {
	e, buf := newTestEmitter()

	e.Output(cordebug.OutputEvent{Output: "line one\n"})

	assert.Equal(t, `=message,text="line one\n",send-to="output-window"`+"\n", buf.String())
}

func TestEmitOutput_WithSource(t *testing.T) {
	e, buf := newTestEmitter()

	e.Output(cordebug.OutputEvent{Output: "hi", Source: "stderr"})

	assert.Equal(t, `=message,text="hi",send-to="output-window",source="stderr"`+"\n", buf.String())
}

func TestEmitBreakpointModified(t *testing.T) {
	e, buf := newTestEmitter()

	e.BreakpointModified(debugger.Breakpoint{ID: 1, FullPath: "/src/a.cs", Line: 4, Verified: true})

	assert.Equal(t, `=breakpoint-modified,bkpt={number="1",type="breakpoint",disp="keep",enabled="y",func="",fullname="/src/a.cs",line="4"}`+"\n", buf.String())
}
