package debugger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafttio/netcoredbg/internal/cordebug"
	"github.com/rafttio/netcoredbg/internal/cordebug/cordebugtest"
)

// scriptedLocals builds a process with one thread/frame holding a
// simple int, and an aggregate with ten children named c0..c9.
func scriptedLocals(proc *cordebugtest.Process) {
	thread := proc.AddThread(1, "main")
	frame := thread.PushFrame(cordebug.FrameLocation{
		SourceName: "prog.cs", SourcePath: "/src/prog.cs", Line: 12, FuncName: "Prog.Main()",
	})

	children := make([]cordebug.NamedValue, 10)
	for i := range children {
		children[i] = cordebugtest.Child(fmt.Sprintf("c%d", i), cordebugtest.SimpleValue(fmt.Sprintf("%d", i*i)))
	}
	frame.AddLocal("x", cordebugtest.SimpleValue("42"))
	frame.AddLocal("items", cordebugtest.AggregateValue("{Items}", children...))
}

func TestCreateVar(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	v, err := d.CreateVar(1, 0, "var1", "x")

	require.NoError(t, err)
	assert.Equal(t, Variable{Name: "var1", Value: "42"}, v)
}

func TestCreateVar_DottedPath(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	v, err := d.CreateVar(1, 0, "var1", "items.c3")

	require.NoError(t, err)
	assert.Equal(t, "9", v.Value)
}

func TestCreateVar_UnknownIdentifier(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, err := d.CreateVar(1, 0, "var1", "nope")
	require.Error(t, err)
}

func TestCreateVar_ReplacesPriorNode(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, err := d.CreateVar(1, 0, "var1", "items")
	require.NoError(t, err)
	v, err := d.CreateVar(1, 0, "var1", "x")
	require.NoError(t, err)
	assert.Equal(t, "42", v.Value)

	total, _, err := d.ListChildren(0, MaxFrame, "var1")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListChildren_Pagination(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, err := d.CreateVar(1, 0, "var1", "items")
	require.NoError(t, err)

	total, page, err := d.ListChildren(2, 5, "var1")

	require.NoError(t, err)
	assert.Equal(t, 10, total)
	require.Len(t, page, 3)
	assert.Equal(t, ChildVariable{Name: "var1.c2", Exp: "c2", Value: "4"}, page[0])
	assert.Equal(t, ChildVariable{Name: "var1.c3", Exp: "c3", Value: "9"}, page[1])
	assert.Equal(t, ChildVariable{Name: "var1.c4", Exp: "c4", Value: "16"}, page[2])
}

func TestListChildren_ChildrenBecomeNodes(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, err := d.CreateVar(1, 0, "var1", "items")
	require.NoError(t, err)
	_, _, err = d.ListChildren(0, MaxFrame, "var1")
	require.NoError(t, err)

	// Cached children are addressable nodes themselves.
	total, page, err := d.ListChildren(0, MaxFrame, "var1.c2")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestListChildren_UnknownNode(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, _, err := d.ListChildren(0, MaxFrame, "ghost")
	require.Error(t, err)
}

func TestListChildren_StaleAfterResume(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, err := d.CreateVar(1, 0, "var1", "items")
	require.NoError(t, err)

	require.NoError(t, d.Continue())

	_, _, err = d.ListChildren(0, MaxFrame, "var1")
	require.Error(t, err, "nodes must not survive a resume")
}

func TestListChildren_StaleAfterStep(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, err := d.CreateVar(1, 0, "var1", "items")
	require.NoError(t, err)

	require.NoError(t, d.StepCommand(1, StepOver))

	_, _, err = d.ListChildren(0, MaxFrame, "var1")
	require.Error(t, err)
}

func TestDeleteVar(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	_, err := d.CreateVar(1, 0, "var1", "items")
	require.NoError(t, err)
	_, _, err = d.ListChildren(0, MaxFrame, "var1")
	require.NoError(t, err)

	d.DeleteVar("var1")

	_, _, err = d.ListChildren(0, MaxFrame, "var1")
	require.Error(t, err)

	// Children are independent table entries, not owned by the parent.
	_, _, err = d.ListChildren(0, MaxFrame, "var1.c0")
	require.NoError(t, err)

	// Deleting an unknown name is a no-op.
	d.DeleteVar("ghost")
}

func TestGetScopesAndVariables(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	scopes, err := d.GetScopes(1, 0)
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.NotZero(t, scopes[0].VariablesReference)
	assert.Equal(t, 2, scopes[0].NamedVariables)

	vars, err := d.GetVariables(scopes[0].VariablesReference)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, Variable{Name: "x", Value: "42"}, vars[0])
	assert.Equal(t, Variable{Name: "items", Value: "{Items}", Aggregate: true}, vars[1])
}

func TestGetScopes_EmptyFrameHasZeroReference(t *testing.T) {
	proc := cordebugtest.NewProcess()
	thread := proc.AddThread(1, "main")
	thread.PushFrame(cordebug.FrameLocation{FuncName: "Prog.Empty()"})
	d, _ := newTestDebugger(t, proc)

	scopes, err := d.GetScopes(1, 0)
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Zero(t, scopes[0].VariablesReference)
}

func TestScopeReferences_InvalidatedOnResume(t *testing.T) {
	proc := cordebugtest.NewProcess()
	scriptedLocals(proc)
	d, _ := newTestDebugger(t, proc)

	scopes, err := d.GetScopes(1, 0)
	require.NoError(t, err)
	ref := scopes[0].VariablesReference

	require.NoError(t, d.Continue())

	_, err = d.GetVariables(ref)
	require.Error(t, err)
}
