// Package debugger implements the debug engine: breakpoint management,
// execution and stepping control, stack-frame resolution and the lazy
// variable-evaluation tree, coordinated between the synchronous command
// dispatcher and the runtime's asynchronous event callbacks.
package debugger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/rafttio/netcoredbg/internal/cordebug"
)

// State is the engine's execution state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// StepKind selects stepping granularity.
type StepKind int

const (
	StepInto StepKind = iota
	StepOver
	StepOut
)

// ThreadInfo is a point-in-time view of one debuggee thread.
type ThreadInfo struct {
	ID      int
	Name    string
	Running bool
}

// StoppedEvent is the engine-enriched form of a runtime stop: for
// breakpoint stops it carries the matched breakpoint with its bumped hit
// count.
type StoppedEvent struct {
	Reason   cordebug.StopReason
	ThreadID int
	Frame    cordebug.FrameLocation

	Breakpoint *Breakpoint

	ExceptionName        string
	ExceptionDescription string
}

// EventSink receives engine events for rendering. Implementations must
// tolerate calls from the runtime's callback goroutine concurrently with
// command replies.
type EventSink interface {
	Stopped(ev StoppedEvent)
	Exited(exitCode int)
	ThreadChanged(ev cordebug.ThreadEvent)
	Output(ev cordebug.OutputEvent)
	BreakpointModified(bp Breakpoint)
}

// Debugger is the engine. One mutex guards all shared mutable state:
// the breakpoint table, the variable node and scope tables, the engaged
// stepper, the last-stopped thread id and the run state. Capability
// calls are made outside the lock; the runtime may deliver an event
// during any of them.
type Debugger struct {
	logger    zerolog.Logger
	connector cordebug.Connector
	sink      EventSink

	mu                sync.Mutex
	proc              cordebug.Process
	state             State
	justMyCode        bool
	lastStoppedThread int
	activeStepper     cordebug.Stepper

	breakpoints     map[string]map[int]*Breakpoint
	breakpointsByID map[uint32]*Breakpoint
	exceptionBPs    map[uint32]string
	nextBreakpoint  uint32

	vars      map[string]*varNode
	scopes    map[int][]cordebug.NamedValue
	nextScope int
}

// Option configures a Debugger.
type Option func(*Debugger)

// WithJustMyCode sets the initial just-my-code filter.
func WithJustMyCode(enabled bool) Option {
	return func(d *Debugger) { d.justMyCode = enabled }
}

// New creates an engine with no attached debuggee. Events flow to sink;
// debug sessions are established through connector.
func New(logger zerolog.Logger, connector cordebug.Connector, sink EventSink, opts ...Option) *Debugger {
	d := &Debugger{
		logger: logger.With().
			Str("component", "debugger").
			Str("session_id", uuid.New().String()).
			Logger(),
		connector:       connector,
		sink:            sink,
		state:           StateStopped,
		justMyCode:      true,
		breakpoints:     make(map[string]map[int]*Breakpoint),
		breakpointsByID: make(map[uint32]*Breakpoint),
		exceptionBPs:    make(map[uint32]string),
		vars:            make(map[string]*varNode),
		scopes:          make(map[int][]cordebug.NamedValue),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State reports the current execution state.
func (d *Debugger) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetJustMyCode toggles the just-my-code step filter.
func (d *Debugger) SetJustMyCode(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.justMyCode = enabled
}

// JustMyCode reports the just-my-code step filter.
func (d *Debugger) JustMyCode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.justMyCode
}

// LastStoppedThreadID reports the thread id of the most recent stop,
// used as the default target for thread-scoped commands.
func (d *Debugger) LastStoppedThreadID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastStoppedThread
}

func (d *Debugger) process() (cordebug.Process, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc == nil {
		return nil, cordebug.Failf("no process")
	}
	return d.proc, nil
}

// markRunning records a Stopped→Running transition. Frames, steppers
// (once fired) and variable nodes do not survive it; only breakpoints
// persist.
func (d *Debugger) markRunning() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateRunning
	d.invalidateVariablesLocked()
}

// Attach establishes a debug session with a live process.
func (d *Debugger) Attach(ctx context.Context, pid int) error {
	exists, err := process.PidExists(int32(pid))
	if err == nil && !exists {
		return cordebug.NewError(cordebug.StatusInvalidArg, "no such process")
	}
	if p, perr := process.NewProcess(int32(pid)); perr == nil {
		if name, nerr := p.Name(); nerr == nil {
			d.logger.Info().Int("pid", pid).Str("name", name).Msg("Attaching to process")
		}
	}
	proc, err := d.connector.Attach(ctx, pid, d)
	if err != nil {
		return err
	}
	d.setProcess(proc)
	return nil
}

// Launch starts the target executable under the debugger.
func (d *Debugger) Launch(ctx context.Context, path string, args []string, cwd string) error {
	if path == "" {
		return cordebug.NewError(cordebug.StatusInvalidArg, "no executable file specified")
	}
	d.logger.Info().Str("path", path).Strs("args", args).Msg("Launching process")
	proc, err := d.connector.Launch(ctx, path, args, cwd, d)
	if err != nil {
		return err
	}
	d.setProcess(proc)
	d.markRunning()
	return nil
}

func (d *Debugger) setProcess(proc cordebug.Process) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proc = proc
	d.state = StateStopped
}

// Detach releases the debuggee without killing it.
func (d *Debugger) Detach() error {
	proc, err := d.process()
	if err != nil {
		return err
	}
	if err := proc.Detach(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proc = nil
	d.invalidateVariablesLocked()
	return nil
}

// Terminate forcibly stops the debuggee. A missing process is not an
// error so teardown paths can call it unconditionally.
func (d *Debugger) Terminate() error {
	d.mu.Lock()
	proc := d.proc
	d.state = StateTerminated
	d.invalidateVariablesLocked()
	d.mu.Unlock()
	if proc == nil {
		return nil
	}
	return proc.Terminate()
}

// Continue resumes the debuggee.
func (d *Debugger) Continue() error {
	proc, err := d.process()
	if err != nil {
		return err
	}
	if err := proc.Continue(); err != nil {
		return err
	}
	d.markRunning()
	return nil
}

// Pause halts the debuggee. The runtime does not report user-initiated
// halts, so a synthetic interrupted stop event is emitted once the halt
// is confirmed.
func (d *Debugger) Pause() error {
	proc, err := d.process()
	if err != nil {
		return err
	}
	if err := proc.Stop(); err != nil {
		return err
	}
	d.mu.Lock()
	d.state = StateStopped
	d.mu.Unlock()
	d.sink.Stopped(StoppedEvent{Reason: cordebug.StopPause})
	return nil
}

// StepCommand disengages any engaged stepper, arms a new one on the
// target thread and resumes the debuggee. At most one stepper is
// engaged system-wide afterwards.
func (d *Debugger) StepCommand(threadID int, kind StepKind) error {
	proc, err := d.process()
	if err != nil {
		return err
	}
	thread, err := proc.Thread(threadID)
	if err != nil {
		return err
	}

	d.mu.Lock()
	prev := d.activeStepper
	d.activeStepper = nil
	jmc := d.justMyCode
	d.mu.Unlock()
	if prev != nil && prev.Active() {
		if derr := prev.Deactivate(); derr != nil {
			d.logger.Warn().Err(derr).Msg("Failed to disengage previous stepper")
		}
	}

	stepper, err := d.setupStep(thread, kind, jmc)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.activeStepper = stepper
	d.mu.Unlock()

	if err := proc.Continue(); err != nil {
		return err
	}
	d.markRunning()
	return nil
}

// setupStep configures and arms a stepper per the runtime's stepping
// contract: no interception of security or class-init events, no halt
// on unmapped code, just-my-code per the current setting. Into/Over use
// the source-mapped range at the IP when one exists, otherwise a
// single-instruction step; Out steps out unconditionally.
func (d *Debugger) setupStep(thread cordebug.Thread, kind StepKind, jmc bool) (cordebug.Stepper, error) {
	stepper, err := thread.CreateStepper()
	if err != nil {
		return nil, err
	}
	mask := cordebug.InterceptAll &^ (cordebug.InterceptSecurity | cordebug.InterceptClassInit)
	if err := stepper.SetInterceptMask(mask); err != nil {
		return nil, err
	}
	if err := stepper.SetUnmappedStopMask(cordebug.UnmappedStopNone); err != nil {
		return nil, err
	}
	if err := stepper.SetJustMyCode(jmc); err != nil {
		return nil, err
	}

	if kind == StepOut {
		if err := stepper.StepOut(); err != nil {
			return nil, err
		}
		return stepper, nil
	}

	stepIn := kind == StepInto
	if rng, rerr := thread.StepRangeAtIP(); rerr == nil {
		if err := stepper.StepRange(stepIn, rng); err != nil {
			return nil, err
		}
	} else if err := stepper.Step(stepIn); err != nil {
		return nil, err
	}
	return stepper, nil
}

// Threads queries the live thread list from the runtime.
func (d *Debugger) Threads() ([]ThreadInfo, error) {
	proc, err := d.process()
	if err != nil {
		return nil, err
	}
	threads, err := proc.Threads()
	if err != nil {
		return nil, err
	}
	infos := make([]ThreadInfo, 0, len(threads))
	for _, t := range threads {
		infos = append(infos, ThreadInfo{ID: t.ID(), Name: t.Name(), Running: t.Running()})
	}
	return infos, nil
}

// OnStopped implements cordebug.EventHandler. It records the stop,
// matches breakpoint stops against the table while holding the lock,
// then emits with the lock released.
func (d *Debugger) OnStopped(ev cordebug.StoppedEvent) {
	d.mu.Lock()
	d.state = StateStopped
	d.lastStoppedThread = ev.ThreadID
	if ev.Reason == cordebug.StopStep {
		// A completed step consumes its stepper.
		d.activeStepper = nil
	}
	out := StoppedEvent{
		Reason:               ev.Reason,
		ThreadID:             ev.ThreadID,
		Frame:                ev.Frame,
		ExceptionName:        ev.ExceptionName,
		ExceptionDescription: ev.ExceptionDescription,
	}
	var modified *Breakpoint
	if ev.Reason == cordebug.StopBreakpoint {
		if bp := d.findBreakpointAtLocked(ev.Frame); bp != nil {
			bp.HitCount++
			snapshot := *bp
			out.Breakpoint = &snapshot
			modified = &snapshot
		}
	}
	d.mu.Unlock()

	d.logger.Debug().Int("thread_id", ev.ThreadID).Int("reason", int(ev.Reason)).Msg("Debuggee stopped")
	if modified != nil {
		d.sink.BreakpointModified(*modified)
	}
	d.sink.Stopped(out)
}

// OnExited implements cordebug.EventHandler.
func (d *Debugger) OnExited(ev cordebug.ExitedEvent) {
	d.mu.Lock()
	d.state = StateTerminated
	d.invalidateVariablesLocked()
	d.mu.Unlock()
	d.logger.Info().Int("exit_code", ev.ExitCode).Msg("Debuggee exited")
	d.sink.Exited(ev.ExitCode)
}

// OnThread implements cordebug.EventHandler.
func (d *Debugger) OnThread(ev cordebug.ThreadEvent) {
	d.sink.ThreadChanged(ev)
}

// OnOutput implements cordebug.EventHandler.
func (d *Debugger) OnOutput(ev cordebug.OutputEvent) {
	d.sink.Output(ev)
}
