package debugger

import (
	"sort"

	"github.com/rafttio/netcoredbg/internal/cordebug"
)

// UnresolvedBreakpointWarning is the fixed text reported for breakpoints
// that could not be bound to loaded code.
const UnresolvedBreakpointWarning = "No executable code of the debugger's target code type is associated with this line."

// Breakpoint is one requested source breakpoint. Ids are unique and
// strictly increasing for the session, independent of deletions.
// Verified becomes true only after successful resolution against loaded
// code; unverified breakpoints are retained and rendered with
// UnresolvedBreakpointWarning.
type Breakpoint struct {
	ID        uint32
	File      string
	FullPath  string
	Line      int
	Condition string
	Verified  bool
	HitCount  uint32
}

// InsertBreakpoint registers a breakpoint at file:line and eagerly
// attempts resolution against currently loaded code. Resolution failure
// (including the no-process case) yields an unverified breakpoint, not
// an error. There is no background re-verification.
func (d *Debugger) InsertBreakpoint(file string, line int, condition string) Breakpoint {
	d.mu.Lock()
	proc := d.proc
	d.mu.Unlock()

	var res cordebug.Resolution
	var resErr error
	if proc != nil {
		res, resErr = proc.ResolveBreakpoint(file, line)
	} else {
		resErr = cordebug.Failf("no process")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextBreakpoint++
	bp := &Breakpoint{
		ID:        d.nextBreakpoint,
		File:      file,
		Line:      line,
		Condition: condition,
	}
	if resErr == nil {
		bp.Verified = true
		bp.FullPath = res.FullPath
		bp.Line = res.Line
	}

	byLine, ok := d.breakpoints[file]
	if !ok {
		byLine = make(map[int]*Breakpoint)
		d.breakpoints[file] = byLine
	}
	// A re-insert at the same location replaces the old entry in both
	// indexes; one location never answers to two ids.
	if old, ok := byLine[line]; ok {
		delete(d.breakpointsByID, old.ID)
	}
	byLine[line] = bp
	d.breakpointsByID[bp.ID] = bp

	d.logger.Debug().
		Uint32("id", bp.ID).
		Str("file", file).
		Int("line", line).
		Bool("verified", bp.Verified).
		Msg("Breakpoint inserted")
	return *bp
}

// DeleteBreakpoint removes a breakpoint immediately; unknown ids are a
// no-op.
func (d *Debugger) DeleteBreakpoint(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	bp, ok := d.breakpointsByID[id]
	if !ok {
		delete(d.exceptionBPs, id)
		return
	}
	delete(d.breakpointsByID, id)
	if byLine, ok := d.breakpoints[bp.File]; ok {
		if cur, ok := byLine[bp.Line]; ok && cur.ID == id {
			delete(byLine, bp.Line)
		}
		if len(byLine) == 0 {
			delete(d.breakpoints, bp.File)
		}
	}
}

// Breakpoints returns a snapshot of all source breakpoints ordered by
// id.
func (d *Debugger) Breakpoints() []Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Breakpoint, 0, len(d.breakpointsByID))
	for _, bp := range d.breakpointsByID {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InsertExceptionBreakpoint registers a break-on-exception filter for
// the named exception type. Exception breakpoints share the source
// breakpoint id sequence.
func (d *Debugger) InsertExceptionBreakpoint(name string) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextBreakpoint++
	d.exceptionBPs[d.nextBreakpoint] = name
	return d.nextBreakpoint
}

// findBreakpointAtLocked matches a stop location against the table.
// Resolved breakpoints match on full path, unresolved ones on the
// requested file spelling.
func (d *Debugger) findBreakpointAtLocked(loc cordebug.FrameLocation) *Breakpoint {
	for _, bp := range d.breakpointsByID {
		if bp.Line != loc.Line {
			continue
		}
		if bp.Verified && bp.FullPath == loc.SourcePath {
			return bp
		}
		if !bp.Verified && (bp.File == loc.SourcePath || bp.File == loc.SourceName) {
			return bp
		}
	}
	return nil
}
