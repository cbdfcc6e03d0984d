package mi

import (
	"fmt"
	"strings"

	"github.com/rafttio/netcoredbg/internal/cordebug"
	"github.com/rafttio/netcoredbg/internal/debugger"
)

// formatAddr renders a raw address as 0x-prefixed hex padded to pointer
// width.
func formatAddr(addr uint64) string {
	return fmt.Sprintf("0x%016x", addr)
}

// formatBreakpoint renders one bkpt={...} tuple. Verified breakpoints
// carry their resolved path and line; unverified ones carry the fixed
// warning text instead.
func formatBreakpoint(bp debugger.Breakpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, `bkpt={number="%d",type="breakpoint",disp="keep",enabled="y",`, bp.ID)
	if bp.Verified {
		fmt.Fprintf(&b, `func="",fullname="%s",line="%d"`, EscapeValue(bp.FullPath), bp.Line)
	} else {
		fmt.Fprintf(&b, `warning="%s"`, UnresolvedBreakpointWarning)
	}
	if bp.Condition != "" {
		fmt.Fprintf(&b, `,cond="%s"`, EscapeValue(bp.Condition))
	}
	b.WriteString("}")
	return b.String()
}

// UnresolvedBreakpointWarning mirrors the engine's fixed warning text.
const UnresolvedBreakpointWarning = debugger.UnresolvedBreakpointWarning

// formatFrameLocation renders the location fields of one frame: source
// block when the frame has source mapping, managed-address block when a
// method token is present, raw address only for frames with a non-zero
// internal identity.
func formatFrameLocation(loc cordebug.FrameLocation) string {
	var b strings.Builder
	if loc.HasSource() {
		fmt.Fprintf(&b, `file="%s",fullname="%s",line="%d",col="%d",end-line="%d",end-col="%d",`,
			EscapeValue(loc.SourceName), EscapeValue(loc.SourcePath),
			loc.Line, loc.Column, loc.EndLine, loc.EndColumn)
	}
	if loc.MethodToken != 0 {
		fmt.Fprintf(&b, `clr-addr={module-id="{%s}",method-token="0x%08x",il-offset="%d",native-offset="%d"},`,
			loc.ModuleID, loc.MethodToken, loc.ILOffset, loc.NativeOffset)
	}
	fmt.Fprintf(&b, `func="%s"`, EscapeValue(loc.FuncName))
	if loc.ID != 0 {
		fmt.Fprintf(&b, `,addr="%s"`, formatAddr(loc.Addr))
	}
	return b.String()
}

// formatFrames renders a stack=[...] list with levels counted from
// lowFrame.
func formatFrames(lowFrame int, frames []cordebug.FrameLocation) string {
	var b strings.Builder
	b.WriteString("stack=[")
	for i, loc := range frames {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `frame={level="%d",%s}`, lowFrame+i, formatFrameLocation(loc))
	}
	b.WriteString("]")
	return b.String()
}

// formatVariables renders a variables=[...] list of name/value pairs.
func formatVariables(vars []debugger.Variable) string {
	var b strings.Builder
	b.WriteString("variables=[")
	for i, v := range vars {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{name="%s",value="%s"}`, EscapeValue(v.Name), EscapeValue(v.Value))
	}
	b.WriteString("]")
	return b.String()
}

// Value display modes for var-list-children.
const (
	valuesOmit   = 0
	valuesAll    = 1
	valuesSimple = 2
)

// formatChildren renders a var-list-children reply. The value of each
// child is included per the display mode: omitted, always, or only for
// non-aggregate values.
func formatChildren(total int, page []debugger.ChildVariable, printValues int, hasMore bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, `numchild="%d",children=[`, total)
	for i, c := range page {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `child={name="%s",exp="%s"`, EscapeValue(c.Name), EscapeValue(c.Exp))
		if printValues == valuesAll || (printValues == valuesSimple && !c.Aggregate) {
			fmt.Fprintf(&b, `,value="%s"`, EscapeValue(c.Value))
		}
		b.WriteString("}")
	}
	more := "0"
	if hasMore {
		more = "1"
	}
	fmt.Fprintf(&b, `],has_more="%s"`, more)
	return b.String()
}
