package debugger

import (
	"strings"

	"github.com/rafttio/netcoredbg/internal/cordebug"
)

// varNode is one entry of the variable node table. Nodes are keyed by
// client-chosen name; parent and children are lookup relations into the
// table, never ownership. The whole table is invalidated on every
// transition to Running.
type varNode struct {
	name       string
	exp        string
	value      cordebug.Value
	threadID   int
	frameLevel int
	parent     string

	// children holds ordered child node names once cached by the first
	// ListChildren call.
	children       []string
	childrenCached bool
}

// Variable is a rendered name/value pair.
type Variable struct {
	Name      string
	Value     string
	Aggregate bool
}

// ChildVariable is one rendered child of a variable node.
type ChildVariable struct {
	Name      string
	Exp       string
	Value     string
	Aggregate bool
}

// Scope groups a frame's variables behind a variables-reference that
// seeds root enumeration. A zero reference means the scope is empty.
type Scope struct {
	Name               string
	VariablesReference int
	NamedVariables     int
}

func (d *Debugger) frameAt(threadID, frameLevel int) (cordebug.Frame, error) {
	proc, err := d.process()
	if err != nil {
		return nil, err
	}
	thread, err := proc.Thread(threadID)
	if err != nil {
		return nil, err
	}
	return thread.FrameAt(frameLevel)
}

// GetScopes resolves the frame's variable scopes. Scope references are
// valid only until the next resume.
func (d *Debugger) GetScopes(threadID, frameLevel int) ([]Scope, error) {
	frame, err := d.frameAt(threadID, frameLevel)
	if err != nil {
		return nil, err
	}
	locals, err := frame.Locals()
	if err != nil {
		return nil, err
	}

	scope := Scope{Name: "Locals", NamedVariables: len(locals)}
	if len(locals) > 0 {
		d.mu.Lock()
		d.nextScope++
		scope.VariablesReference = d.nextScope
		d.scopes[scope.VariablesReference] = locals
		d.mu.Unlock()
	}
	return []Scope{scope}, nil
}

// GetVariables renders the values behind a variables-reference.
func (d *Debugger) GetVariables(ref int) ([]Variable, error) {
	d.mu.Lock()
	locals, ok := d.scopes[ref]
	d.mu.Unlock()
	if !ok {
		return nil, cordebug.Failf("unknown variables reference: %d", ref)
	}
	out := make([]Variable, 0, len(locals))
	for _, nv := range locals {
		out = append(out, Variable{
			Name:      nv.Name,
			Value:     nv.Value.String(),
			Aggregate: nv.Value.Kind() == cordebug.KindAggregate,
		})
	}
	return out, nil
}

// evalPath resolves a dotted identifier path in the frame's lexical
// scope: the first segment is a frame identifier, each further segment
// names a member or element of the preceding value.
func evalPath(frame cordebug.Frame, expr string) (cordebug.Value, error) {
	segments := strings.Split(expr, ".")
	v, err := frame.Eval(segments[0])
	if err != nil {
		return nil, err
	}
	for _, seg := range segments[1:] {
		v, err = childByName(v, seg)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func childByName(v cordebug.Value, name string) (cordebug.Value, error) {
	children, err := v.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.Name == name {
			return c.Value, nil
		}
	}
	return nil, cordebug.Failf("no member %q", name)
}

// CreateVar evaluates expr in the given frame's lexical context and
// stores a fresh node under name, replacing any prior node with that
// name. The node is valid until the debuggee resumes.
func (d *Debugger) CreateVar(threadID, frameLevel int, name, expr string) (Variable, error) {
	frame, err := d.frameAt(threadID, frameLevel)
	if err != nil {
		return Variable{}, err
	}
	value, err := evalPath(frame, expr)
	if err != nil {
		return Variable{}, err
	}

	d.mu.Lock()
	d.vars[name] = &varNode{
		name:       name,
		exp:        expr,
		value:      value,
		threadID:   threadID,
		frameLevel: frameLevel,
	}
	d.mu.Unlock()

	return Variable{
		Name:      name,
		Value:     value.String(),
		Aggregate: value.Kind() == cordebug.KindAggregate,
	}, nil
}

// ListChildren resolves a node to its ordered children, caching them in
// the node table on first use, and returns the page [start, end). A
// node referenced after the debuggee has resumed since its creation
// fails rather than serving stale data. The returned total counts all
// children, not just the page.
func (d *Debugger) ListChildren(start, end int, name string) (total int, page []ChildVariable, err error) {
	d.mu.Lock()
	node, ok := d.vars[name]
	if !ok {
		d.mu.Unlock()
		return 0, nil, cordebug.Failf("variable %q does not exist", name)
	}
	cached := node.childrenCached
	value := node.value
	d.mu.Unlock()

	if !cached {
		children, cerr := value.Children()
		if cerr != nil {
			return 0, nil, cerr
		}
		d.mu.Lock()
		// The debuggee may have resumed during enumeration; never cache
		// onto an invalidated table.
		node, ok = d.vars[name]
		if !ok {
			d.mu.Unlock()
			return 0, nil, cordebug.Failf("variable %q does not exist", name)
		}
		if !node.childrenCached {
			node.children = make([]string, 0, len(children))
			for _, c := range children {
				childName := node.name + "." + c.Name
				d.vars[childName] = &varNode{
					name:       childName,
					exp:        c.Name,
					value:      c.Value,
					threadID:   node.threadID,
					frameLevel: node.frameLevel,
					parent:     node.name,
				}
				node.children = append(node.children, childName)
			}
			node.childrenCached = true
		}
		d.mu.Unlock()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	node, ok = d.vars[name]
	if !ok {
		return 0, nil, cordebug.Failf("variable %q does not exist", name)
	}

	total = len(node.children)
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	page = make([]ChildVariable, 0, end-start)
	for _, childName := range node.children[start:end] {
		child := d.vars[childName]
		page = append(page, ChildVariable{
			Name:      child.name,
			Exp:       child.exp,
			Value:     child.value.String(),
			Aggregate: child.value.Kind() == cordebug.KindAggregate,
		})
	}
	return total, page, nil
}

// DeleteVar removes the named node. Children reference the table only
// through their own entries, so no cascading delete is needed; unknown
// names are a no-op.
func (d *Debugger) DeleteVar(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.vars, name)
}

// invalidateVariablesLocked drops every variable node and scope
// reference. Callers hold d.mu.
func (d *Debugger) invalidateVariablesLocked() {
	d.vars = make(map[string]*varNode)
	d.scopes = make(map[int][]cordebug.NamedValue)
}
