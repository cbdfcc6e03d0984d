package mi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rafttio/netcoredbg/internal/cordebug"
	"github.com/rafttio/netcoredbg/internal/debugger"
)

func TestFormatBreakpoint_Verified(t *testing.T) {
	bp := debugger.Breakpoint{ID: 2, FullPath: "/src/file.cs", Line: 10, Verified: true}

	got := formatBreakpoint(bp)

	assert.Equal(t, `bkpt={number="2",type="breakpoint",disp="keep",enabled="y",func="",fullname="/src/file.cs",line="10"}`, got)
}

func TestFormatBreakpoint_UnverifiedOmitsLineAndPath(t *testing.T) {
	bp := debugger.Breakpoint{ID: 3, File: "missing.cs", Line: 42}

	got := formatBreakpoint(bp)

	assert.Contains(t, got, `warning="`+UnresolvedBreakpointWarning+`"`)
	assert.NotContains(t, got, "line=")
	assert.NotContains(t, got, "fullname=")
}

func TestFormatBreakpoint_Condition(t *testing.T) {
	bp := debugger.Breakpoint{ID: 1, FullPath: "/src/a.cs", Line: 5, Verified: true, Condition: "ready"}

	assert.Contains(t, formatBreakpoint(bp), `,cond="ready"`)
}

func TestFormatFrameLocation_FullFrame(t *testing.T) {
	loc := cordebug.FrameLocation{
		SourceName:   "file.cs",
		SourcePath:   "/src/file.cs",
		Line:         10,
		Column:       5,
		EndLine:      10,
		EndColumn:    20,
		ModuleID:     "a1b2",
		MethodToken:  0x06000001,
		ILOffset:     3,
		NativeOffset: 17,
		FuncName:     "Prog.Main()",
		Addr:         0xdeadbeef,
		ID:           7,
	}

	got := formatFrameLocation(loc)

	assert.Equal(t, `file="file.cs",fullname="/src/file.cs",line="10",col="5",end-line="10",end-col="20",`+
		`clr-addr={module-id="{a1b2}",method-token="0x06000001",il-offset="3",native-offset="17"},`+
		`func="Prog.Main()",addr="0x00000000deadbeef"`, got)
}

func TestFormatFrameLocation_NoSourceNoTokenNoID(t *testing.T) {
	got := formatFrameLocation(cordebug.FrameLocation{FuncName: "Native.Frame()"})

	assert.Equal(t, `func="Native.Frame()"`, got)
}

func TestFormatFrames_LevelsCountFromLow(t *testing.T) {
	frames := []cordebug.FrameLocation{
		{FuncName: "A()"},
		{FuncName: "B()"},
	}

	got := formatFrames(3, frames)

	assert.Equal(t, `stack=[frame={level="3",func="A()"},frame={level="4",func="B()"}]`, got)
}

func TestFormatFrames_Empty(t *testing.T) {
	assert.Equal(t, "stack=[]", formatFrames(0, nil))
}

func TestFormatVariables(t *testing.T) {
	vars := []debugger.Variable{
		{Name: "x", Value: "42"},
		{Name: "s", Value: `a "b"`},
	}

	got := formatVariables(vars)

	assert.Equal(t, `variables=[{name="x",value="42"},{name="s",value="a \"b\""}]`, got)
}

func TestFormatChildren_DisplayModes(t *testing.T) {
	page := []debugger.ChildVariable{
		{Name: "v.a", Exp: "a", Value: "1"},
		{Name: "v.b", Exp: "b", Value: "{Obj}", Aggregate: true},
	}

	omit := formatChildren(2, page, valuesOmit, false)
	assert.Equal(t, `numchild="2",children=[child={name="v.a",exp="a"},child={name="v.b",exp="b"}],has_more="0"`, omit)

	all := formatChildren(2, page, valuesAll, false)
	assert.Contains(t, all, `child={name="v.a",exp="a",value="1"}`)
	assert.Contains(t, all, `child={name="v.b",exp="b",value="{Obj}"}`)

	simple := formatChildren(2, page, valuesSimple, true)
	assert.Contains(t, simple, `child={name="v.a",exp="a",value="1"}`)
	assert.Contains(t, simple, `child={name="v.b",exp="b"}`)
	assert.Contains(t, simple, `has_more="1"`)
}
