// Package cordebugtest provides a scriptable in-memory implementation of
// the cordebug capability surface for engine and protocol tests.
package cordebugtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rafttio/netcoredbg/internal/cordebug"
)

// Process is a fake debuggee capability. Tests script threads, frames,
// locals and breakpoint resolutions onto it, then drive the engine and
// raise runtime events at will.
type Process struct {
	mu          sync.Mutex
	handler     cordebug.EventHandler
	threads     []*Thread
	resolutions map[string]map[int]cordebug.Resolution
	steppers    []*Stepper
	failWith    error

	continues  int
	stops      int
	terminates int
	detaches   int
}

// NewProcess creates an empty fake process.
func NewProcess() *Process {
	return &Process{resolutions: make(map[string]map[int]cordebug.Resolution)}
}

// SetHandler wires the event handler the fake raises events through.
func (p *Process) SetHandler(h cordebug.EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// FailWith makes every subsequent capability call return err. Pass nil
// to restore normal behavior.
func (p *Process) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// AddThread scripts a debuggee thread.
func (p *Process) AddThread(id int, name string) *Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := &Thread{proc: p, id: id, name: name}
	p.threads = append(p.threads, t)
	return t
}

// AddResolution scripts a successful breakpoint binding for file:line.
func (p *Process) AddResolution(file string, line int, fullPath string, resolvedLine int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	byLine, ok := p.resolutions[file]
	if !ok {
		byLine = make(map[int]cordebug.Resolution)
		p.resolutions[file] = byLine
	}
	byLine[line] = cordebug.Resolution{FullPath: fullPath, Line: resolvedLine}
}

func (p *Process) Continue() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.continues++
	return nil
}

func (p *Process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.stops++
	return nil
}

func (p *Process) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.terminates++
	return nil
}

func (p *Process) Detach() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.detaches++
	return nil
}

func (p *Process) Thread(id int) (cordebug.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return nil, p.failWith
	}
	for _, t := range p.threads {
		if t.id == id {
			return t, nil
		}
	}
	return nil, cordebug.Failf("no such thread: %d", id)
}

func (p *Process) Threads() ([]cordebug.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return nil, p.failWith
	}
	out := make([]cordebug.Thread, len(p.threads))
	for i, t := range p.threads {
		out[i] = t
	}
	return out, nil
}

func (p *Process) ResolveBreakpoint(file string, line int) (cordebug.Resolution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return cordebug.Resolution{}, p.failWith
	}
	if byLine, ok := p.resolutions[file]; ok {
		if res, ok := byLine[line]; ok {
			return res, nil
		}
	}
	return cordebug.Resolution{}, cordebug.Failf("no code at %s:%d", file, line)
}

// ContinueCount reports how many times Continue was called.
func (p *Process) ContinueCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.continues
}

// StopCount reports how many times Stop was called.
func (p *Process) StopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

// TerminateCount reports how many times Terminate was called.
func (p *Process) TerminateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminates
}

// ActiveSteppers counts steppers created on this process that are still
// armed.
func (p *Process) ActiveSteppers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.steppers {
		if s.Active() {
			n++
		}
	}
	return n
}

// Steppers returns every stepper ever created on this process.
func (p *Process) Steppers() []*Stepper {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Stepper(nil), p.steppers...)
}

// RaiseStopped delivers a stopped event through the registered handler.
func (p *Process) RaiseStopped(ev cordebug.StoppedEvent) {
	if h := p.currentHandler(); h != nil {
		h.OnStopped(ev)
	}
}

// RaiseExited delivers a debuggee-exit event.
func (p *Process) RaiseExited(exitCode int) {
	if h := p.currentHandler(); h != nil {
		h.OnExited(cordebug.ExitedEvent{ExitCode: exitCode})
	}
}

// RaiseThread delivers a thread lifecycle event.
func (p *Process) RaiseThread(reason cordebug.ThreadReason, threadID int) {
	if h := p.currentHandler(); h != nil {
		h.OnThread(cordebug.ThreadEvent{Reason: reason, ThreadID: threadID})
	}
}

// RaiseOutput delivers a debuggee output event.
func (p *Process) RaiseOutput(text, source string) {
	if h := p.currentHandler(); h != nil {
		h.OnOutput(cordebug.OutputEvent{Output: text, Source: source})
	}
}

func (p *Process) currentHandler() cordebug.EventHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler
}

// Thread is a scripted debuggee thread.
type Thread struct {
	proc    *Process
	id      int
	name    string
	running bool
	frames  []*Frame
	ipRange *cordebug.StepRange
}

func (t *Thread) ID() int       { return t.id }
func (t *Thread) Name() string  { return t.name }
func (t *Thread) Running() bool { return t.running }

// SetRunning scripts the thread's running flag.
func (t *Thread) SetRunning(running bool) { t.running = running }

// SetStepRange scripts a source-mapped instruction range at the current
// instruction pointer. Without one, StepRangeAtIP fails.
func (t *Thread) SetStepRange(start, end uint32) {
	t.ipRange = &cordebug.StepRange{Start: start, End: end}
}

// PushFrame appends a frame to the thread's stack; frames are scripted
// top-first.
func (t *Thread) PushFrame(loc cordebug.FrameLocation) *Frame {
	f := &Frame{loc: loc}
	t.frames = append(t.frames, f)
	return f
}

func (t *Thread) CreateStepper() (cordebug.Stepper, error) {
	t.proc.mu.Lock()
	defer t.proc.mu.Unlock()
	if t.proc.failWith != nil {
		return nil, t.proc.failWith
	}
	s := &Stepper{threadID: t.id}
	t.proc.steppers = append(t.proc.steppers, s)
	return s, nil
}

func (t *Thread) Frames() ([]cordebug.Frame, error) {
	out := make([]cordebug.Frame, len(t.frames))
	for i, f := range t.frames {
		out[i] = f
	}
	return out, nil
}

func (t *Thread) FrameAt(level int) (cordebug.Frame, error) {
	if level < 0 || level >= len(t.frames) {
		return nil, cordebug.Failf("no frame at level %d", level)
	}
	return t.frames[level], nil
}

func (t *Thread) StepRangeAtIP() (cordebug.StepRange, error) {
	if t.ipRange == nil {
		return cordebug.StepRange{}, cordebug.Failf("no source-mapped range at IP")
	}
	return *t.ipRange, nil
}

// Frame is a scripted stack frame.
type Frame struct {
	loc    cordebug.FrameLocation
	locals []cordebug.NamedValue
}

// AddLocal scripts a lexically visible variable on the frame.
func (f *Frame) AddLocal(name string, v cordebug.Value) *Frame {
	f.locals = append(f.locals, cordebug.NamedValue{Name: name, Value: v})
	return f
}

func (f *Frame) Location() cordebug.FrameLocation { return f.loc }

func (f *Frame) Locals() ([]cordebug.NamedValue, error) {
	return append([]cordebug.NamedValue(nil), f.locals...), nil
}

func (f *Frame) Eval(name string) (cordebug.Value, error) {
	for _, nv := range f.locals {
		if nv.Name == name {
			return nv.Value, nil
		}
	}
	return nil, cordebug.Failf("unknown identifier: %s", name)
}

// Stepper records its configuration so tests can assert on arming.
type Stepper struct {
	mu        sync.Mutex
	threadID  int
	intercept cordebug.InterceptMask
	unmapped  cordebug.UnmappedStopMask
	jmc       bool
	active    bool

	// Arming mode, one of "", "range", "step", "out".
	Mode   string
	StepIn bool
	Range  cordebug.StepRange
}

// ThreadID reports which thread the stepper was created on.
func (s *Stepper) ThreadID() int { return s.threadID }

// Intercept reports the configured intercept mask.
func (s *Stepper) Intercept() cordebug.InterceptMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intercept
}

// Unmapped reports the configured unmapped stop mask.
func (s *Stepper) Unmapped() cordebug.UnmappedStopMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmapped
}

// JustMyCode reports the configured JMC flag.
func (s *Stepper) JustMyCode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jmc
}

func (s *Stepper) SetInterceptMask(mask cordebug.InterceptMask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intercept = mask
	return nil
}

func (s *Stepper) SetUnmappedStopMask(mask cordebug.UnmappedStopMask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmapped = mask
	return nil
}

func (s *Stepper) SetJustMyCode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jmc = enabled
	return nil
}

func (s *Stepper) StepRange(stepIn bool, rng cordebug.StepRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mode, s.StepIn, s.Range, s.active = "range", stepIn, rng, true
	return nil
}

func (s *Stepper) Step(stepIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mode, s.StepIn, s.active = "step", stepIn, true
	return nil
}

func (s *Stepper) StepOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mode, s.active = "out", true
	return nil
}

func (s *Stepper) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	return nil
}

func (s *Stepper) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Value is a scripted debuggee value.
type Value struct {
	val      string
	kind     cordebug.ValueKind
	children []cordebug.NamedValue
	childErr error
}

// SimpleValue creates a leaf value rendering as val.
func SimpleValue(val string) *Value {
	return &Value{val: val, kind: cordebug.KindSimple}
}

// AggregateValue creates an aggregate value with the given ordered
// children.
func AggregateValue(val string, children ...cordebug.NamedValue) *Value {
	return &Value{val: val, kind: cordebug.KindAggregate, children: children}
}

// Child is shorthand for a NamedValue.
func Child(name string, v cordebug.Value) cordebug.NamedValue {
	return cordebug.NamedValue{Name: name, Value: v}
}

// FailChildren makes Children return err.
func (v *Value) FailChildren(err error) { v.childErr = err }

func (v *Value) String() string { return v.val }

func (v *Value) Kind() cordebug.ValueKind { return v.kind }

func (v *Value) Children() ([]cordebug.NamedValue, error) {
	if v.childErr != nil {
		return nil, v.childErr
	}
	return append([]cordebug.NamedValue(nil), v.children...), nil
}

// Connector hands out a pre-scripted process on Attach/Launch.
type Connector struct {
	mu        sync.Mutex
	process   *Process
	attachErr error
	launchErr error

	AttachedPID  int
	LaunchedPath string
	LaunchedArgs []string
	LaunchedCwd  string
}

// NewConnector creates a connector serving p.
func NewConnector(p *Process) *Connector {
	return &Connector{process: p}
}

// FailAttach makes Attach return err.
func (c *Connector) FailAttach(err error) { c.attachErr = err }

// FailLaunch makes Launch return err.
func (c *Connector) FailLaunch(err error) { c.launchErr = err }

func (c *Connector) Attach(_ context.Context, pid int, handler cordebug.EventHandler) (cordebug.Process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attachErr != nil {
		return nil, c.attachErr
	}
	if c.process == nil {
		return nil, fmt.Errorf("connector has no process")
	}
	c.AttachedPID = pid
	c.process.SetHandler(handler)
	return c.process, nil
}

func (c *Connector) Launch(_ context.Context, path string, args []string, cwd string, handler cordebug.EventHandler) (cordebug.Process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.launchErr != nil {
		return nil, c.launchErr
	}
	if c.process == nil {
		return nil, fmt.Errorf("connector has no process")
	}
	c.LaunchedPath, c.LaunchedArgs, c.LaunchedCwd = path, args, cwd
	c.process.SetHandler(handler)
	return c.process, nil
}
