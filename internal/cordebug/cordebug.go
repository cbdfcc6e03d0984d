// Package cordebug defines the boundary to the managed runtime's native
// debugging services. The engine never talks to the runtime directly; it
// holds a Process capability and receives runtime callbacks through an
// EventHandler, so the whole engine can run against a substitute
// implementation in tests.
package cordebug

import "context"

// StepRange is a source-mapped instruction range at the current
// instruction pointer. Offsets are IL offsets within the current method.
type StepRange struct {
	Start uint32
	End   uint32
}

// InterceptMask selects which runtime-internal call classes a stepper
// steps into.
type InterceptMask uint32

const (
	InterceptSecurity  InterceptMask = 1 << 0
	InterceptClassInit InterceptMask = 1 << 1
	InterceptAll       InterceptMask = InterceptSecurity | InterceptClassInit
)

// UnmappedStopMask selects whether a stepper halts in code without
// source mapping.
type UnmappedStopMask uint32

const (
	UnmappedStopNone UnmappedStopMask = 0
	UnmappedStopAll  UnmappedStopMask = 1
)

// FrameLocation describes where a stack frame sits, both in source terms
// and in managed-address terms. A frame without source mapping has an
// empty SourcePath.
type FrameLocation struct {
	SourceName   string
	SourcePath   string
	Line         int
	Column       int
	EndLine      int
	EndColumn    int
	ModuleID     string
	MethodToken  uint32
	ILOffset     int
	NativeOffset int
	FuncName     string
	Addr         uint64

	// ID is the frame's internal identity within the runtime; zero when
	// the frame has none (e.g. runtime-internal frames).
	ID uint64
}

// HasSource reports whether the frame maps to source code.
func (l FrameLocation) HasSource() bool { return l.SourcePath != "" }

// Resolution is the outcome of binding a requested breakpoint location
// against loaded code.
type Resolution struct {
	FullPath string
	Line     int
}

// ValueKind distinguishes leaf values from aggregates with members or
// elements.
type ValueKind int

const (
	KindSimple ValueKind = iota
	KindAggregate
)

// NamedValue pairs a member/element/local name with its value.
type NamedValue struct {
	Name  string
	Value Value
}

// Value is a lazily-inspectable debuggee value.
type Value interface {
	// String renders the value for display.
	String() string
	Kind() ValueKind
	// Children returns the value's members or elements in declaration
	// order. Simple values return an empty slice.
	Children() ([]NamedValue, error)
}

// Frame is one resolved call-stack frame, valid only for the duration of
// a single stop.
type Frame interface {
	Location() FrameLocation
	// Locals returns the frame's lexically visible variables in
	// declaration order.
	Locals() ([]NamedValue, error)
	// Eval resolves a single identifier in the frame's lexical scope.
	Eval(name string) (Value, error)
}

// Stepper is a runtime-owned cursor controlling single-step granularity
// for one thread. Exactly one stepper should be active engine-wide.
type Stepper interface {
	SetInterceptMask(mask InterceptMask) error
	SetUnmappedStopMask(mask UnmappedStopMask) error
	SetJustMyCode(enabled bool) error
	// StepRange arms a step constrained to a source-mapped range;
	// stepIn selects step-into versus step-over at call sites.
	StepRange(stepIn bool, rng StepRange) error
	// Step arms a single-instruction step.
	Step(stepIn bool) error
	// StepOut arms a step out of the current frame.
	StepOut() error
	// Deactivate disarms the stepper.
	Deactivate() error
	Active() bool
}

// Thread is a live view of one debuggee thread, queried on demand.
type Thread interface {
	ID() int
	Name() string
	Running() bool
	CreateStepper() (Stepper, error)
	// Frames returns the thread's call stack top-first.
	Frames() ([]Frame, error)
	// FrameAt returns the frame at the given 0-based level.
	FrameAt(level int) (Frame, error)
	// StepRangeAtIP returns the source-mapped instruction range at the
	// current instruction pointer, or an error when none exists.
	StepRangeAtIP() (StepRange, error)
}

// Process is the debugging capability surface for one attached debuggee.
type Process interface {
	// Continue resumes all debuggee threads.
	Continue() error
	// Stop halts all debuggee threads. The runtime does not report
	// user-initiated halts; the caller is responsible for emitting a
	// synthetic stop event after a confirmed halt.
	Stop() error
	// Terminate kills the debuggee.
	Terminate() error
	// Detach releases the debuggee without killing it.
	Detach() error
	Thread(id int) (Thread, error)
	Threads() ([]Thread, error)
	// ResolveBreakpoint binds a requested source location against
	// currently loaded code.
	ResolveBreakpoint(file string, line int) (Resolution, error)
}

// StopReason says why the debuggee halted.
type StopReason int

const (
	StopBreakpoint StopReason = iota
	StopStep
	StopException
	StopPause
)

// StoppedEvent reports a Running→Stopped transition.
type StoppedEvent struct {
	Reason   StopReason
	ThreadID int
	Frame    FrameLocation

	// Exception fields, set only for StopException.
	ExceptionName        string
	ExceptionDescription string
}

// ExitedEvent reports debuggee termination.
type ExitedEvent struct {
	ExitCode int
}

// ThreadReason distinguishes thread lifecycle events.
type ThreadReason int

const (
	ThreadStarted ThreadReason = iota
	ThreadExited
)

// ThreadEvent reports thread creation or exit.
type ThreadEvent struct {
	Reason   ThreadReason
	ThreadID int
}

// OutputEvent carries debuggee output or runtime log text. Source names
// the originating channel and may be empty.
type OutputEvent struct {
	Output string
	Source string
}

// EventHandler receives runtime-reported debugging events. The runtime
// invokes it from its own execution context, concurrently with any
// in-flight capability call.
type EventHandler interface {
	OnStopped(ev StoppedEvent)
	OnExited(ev ExitedEvent)
	OnThread(ev ThreadEvent)
	OnOutput(ev OutputEvent)
}

// Connector establishes debug sessions. Launch/attach mechanics live
// behind this boundary; the engine only consumes the resulting Process.
type Connector interface {
	Attach(ctx context.Context, pid int, handler EventHandler) (Process, error)
	Launch(ctx context.Context, path string, args []string, cwd string, handler EventHandler) (Process, error)
}
