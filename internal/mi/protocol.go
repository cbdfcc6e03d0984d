// Package mi implements the machine-interface line protocol: a
// synchronous command loop over standard input/output whose replies
// interleave with asynchronous event records rendered by the
// EventEmitter.
package mi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rafttio/netcoredbg/internal/cordebug"
	"github.com/rafttio/netcoredbg/internal/debugger"
)

// commandFunc handles one parsed command. The returned payload is
// rendered per reply-class rules: empty means ^done, a leading '^'
// is emitted verbatim, anything else becomes ^done,<payload>. A non-nil
// error becomes ^error with the status code in hex.
type commandFunc func(args []string) (string, error)

// Protocol is the command dispatcher: it reads newline-terminated
// command lines, dispatches them through a fixed handler registry built
// once per instance, and writes synchronous replies through the shared
// Writer.
type Protocol struct {
	logger   zerolog.Logger
	dbg      *debugger.Debugger
	in       io.Reader
	out      *Writer
	commands map[string]commandFunc

	exit     bool
	fileExec string
	execArgs []string
}

// NewProtocol creates a dispatcher reading commands from in and writing
// all output through out.
func NewProtocol(logger zerolog.Logger, dbg *debugger.Debugger, in io.Reader, out *Writer) *Protocol {
	p := &Protocol{
		logger: logger.With().Str("component", "mi").Logger(),
		dbg:    dbg,
		in:     in,
		out:    out,
	}
	p.commands = map[string]commandFunc{
		"thread-info":            p.cmdThreadInfo,
		"exec-continue":          p.cmdExecContinue,
		"exec-interrupt":         p.cmdExecInterrupt,
		"break-insert":           p.cmdBreakInsert,
		"break-delete":           p.cmdBreakDelete,
		"break-exception-insert": p.cmdBreakExceptionInsert,
		"exec-step":              func(args []string) (string, error) { return p.stepCommand(args, debugger.StepInto) },
		"exec-next":              func(args []string) (string, error) { return p.stepCommand(args, debugger.StepOver) },
		"exec-finish":            func(args []string) (string, error) { return p.stepCommand(args, debugger.StepOut) },
		"exec-abort":             p.cmdExecAbort,
		"exec-run":               p.cmdExecRun,
		"exec-arguments":         p.cmdExecArguments,
		"target-attach":          p.cmdTargetAttach,
		"target-detach":          p.cmdTargetDetach,
		"stack-list-frames":      p.cmdStackListFrames,
		"stack-list-variables":   p.cmdStackListVariables,
		"var-create":             p.cmdVarCreate,
		"var-list-children":      p.cmdVarListChildren,
		"var-delete":             p.cmdVarDelete,
		"var-show-attributes":    p.cmdVarShowAttributes,
		"file-exec-and-symbols":  p.cmdFileExecAndSymbols,
		"environment-cd":         p.cmdEnvironmentCd,
		"gdb-set":                p.cmdGdbSet,
		"gdb-exit":               p.cmdGdbExit,
		"handshake":              p.cmdHandshake,
		"interpreter-exec":       p.cmdInterpreterExec,
	}
	return p
}

// Run executes the command loop until gdb-exit or input EOF. Either way
// the debuggee is forcibly terminated before the final ^exit record.
func (p *Protocol) Run() {
	scanner := bufio.NewScanner(p.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var token string
	for !p.exit {
		token = ""

		// Consumers key off this marker to know a command may be sent.
		p.out.WriteLine("(gdb)")
		if !scanner.Scan() {
			break
		}

		tok, command, args, ok := ParseLine(scanner.Text())
		if !ok {
			p.out.Printf(`%s^error,msg="Failed to parse input"`, token)
			continue
		}
		token = tok

		handler, known := p.commands[command]
		if !known {
			p.out.Printf(`%s^error,msg="Unknown command: %s"`, token, EscapeValue(command))
			continue
		}

		output, err := handler(args)
		if p.exit {
			break
		}
		if err != nil {
			detail := cordebug.DetailOf(err)
			sep := ""
			if detail != "" {
				sep = " "
			}
			p.out.Printf(`%s^error,msg="Error: 0x%08x%s%s"`, token, uint32(cordebug.StatusOf(err)), sep, EscapeValue(detail))
			continue
		}

		switch {
		case output == "":
			p.out.WriteLine(token + "^done")
		case strings.HasPrefix(output, "^"):
			p.out.WriteLine(token + output)
		default:
			p.out.WriteLine(token + "^done," + output)
		}
	}

	if !p.exit {
		// Teardown absorbs capability failures so the final record is
		// always reached.
		if err := p.dbg.Terminate(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to terminate debuggee on shutdown")
		}
	}
	p.out.WriteLine(token + "^exit")
}

func (p *Protocol) cmdThreadInfo(_ []string) (string, error) {
	threads, err := p.dbg.Threads()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("threads=[")
	for i, t := range threads {
		if i > 0 {
			b.WriteString(",")
		}
		state := "stopped"
		if t.Running {
			state = "running"
		}
		fmt.Fprintf(&b, `{id="%d",name="%s",state="%s"}`, t.ID, EscapeValue(t.Name), state)
	}
	b.WriteString("]")
	return b.String(), nil
}

func (p *Protocol) cmdExecContinue(_ []string) (string, error) {
	if err := p.dbg.Continue(); err != nil {
		return "", err
	}
	return "^running", nil
}

func (p *Protocol) cmdExecInterrupt(_ []string) (string, error) {
	if err := p.dbg.Pause(); err != nil {
		return "", err
	}
	return "", nil
}

func (p *Protocol) cmdBreakInsert(args []string) (string, error) {
	file, line, condition, ok := ParseBreakpointSpec(args)
	if !ok {
		return "", cordebug.Failf("Unknown breakpoint location format")
	}
	bp := p.dbg.InsertBreakpoint(file, line, condition)
	return formatBreakpoint(bp), nil
}

func (p *Protocol) cmdBreakDelete(args []string) (string, error) {
	for _, arg := range args {
		if id, ok := parseInt(arg); ok {
			p.dbg.DeleteBreakpoint(uint32(id))
		}
	}
	return "", nil
}

func (p *Protocol) cmdBreakExceptionInsert(args []string) (string, error) {
	if len(args) == 0 {
		return "", cordebug.Failf("Command requires an argument")
	}
	// The first positional argument is the throw/unhandled filter
	// keyword; exception type names follow it.
	start := 1
	if args[0] == "--mda" {
		start = 2
	}
	var b strings.Builder
	b.WriteString("bkpt=[")
	for i := start; i < len(args); i++ {
		if i > start {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{number="%d"}`, p.dbg.InsertExceptionBreakpoint(args[i]))
	}
	b.WriteString("]")
	return b.String(), nil
}

func (p *Protocol) stepCommand(args []string, kind debugger.StepKind) (string, error) {
	threadID := GetIntArg(args, "--thread", p.dbg.LastStoppedThreadID())
	if err := p.dbg.StepCommand(threadID, kind); err != nil {
		return "", err
	}
	return "^running", nil
}

func (p *Protocol) cmdExecAbort(_ []string) (string, error) {
	if err := p.dbg.Terminate(); err != nil {
		return "", err
	}
	return "", nil
}

func (p *Protocol) cmdExecRun(_ []string) (string, error) {
	if err := p.dbg.Launch(context.Background(), p.fileExec, p.execArgs, ""); err != nil {
		return "", err
	}
	return "^running", nil
}

func (p *Protocol) cmdExecArguments(args []string) (string, error) {
	p.execArgs = args
	return "", nil
}

func (p *Protocol) cmdTargetAttach(args []string) (string, error) {
	if len(args) != 1 {
		return "", cordebug.NewError(cordebug.StatusInvalidArg, "Command requires an argument")
	}
	pid, ok := parseInt(args[0])
	if !ok {
		return "", cordebug.NewError(cordebug.StatusInvalidArg, "Invalid pid")
	}
	if err := p.dbg.Attach(context.Background(), pid); err != nil {
		return "", err
	}
	return "", nil
}

func (p *Protocol) cmdTargetDetach(_ []string) (string, error) {
	if err := p.dbg.Detach(); err != nil {
		return "", err
	}
	return "", nil
}

func (p *Protocol) cmdStackListFrames(args []string) (string, error) {
	threadID := GetIntArg(args, "--thread", p.dbg.LastStoppedThreadID())
	lowFrame, highFrame := 0, debugger.MaxFrame
	GetIndices(StripArgs(args), &lowFrame, &highFrame)

	frames, err := p.dbg.GetStackTrace(threadID, lowFrame, highFrame)
	if err != nil {
		return "", err
	}
	return formatFrames(lowFrame, frames), nil
}

func (p *Protocol) cmdStackListVariables(args []string) (string, error) {
	threadID := GetIntArg(args, "--thread", p.dbg.LastStoppedThreadID())
	frameLevel := GetIntArg(args, "--frame", 0)

	scopes, err := p.dbg.GetScopes(threadID, frameLevel)
	if err != nil {
		return "", err
	}
	var vars []debugger.Variable
	if len(scopes) > 0 && scopes[0].VariablesReference != 0 {
		vars, err = p.dbg.GetVariables(scopes[0].VariablesReference)
		if err != nil {
			return "", err
		}
	}
	return formatVariables(vars), nil
}

func (p *Protocol) cmdVarCreate(args []string) (string, error) {
	threadID := GetIntArg(args, "--thread", p.dbg.LastStoppedThreadID())
	frameLevel := GetIntArg(args, "--frame", 0)

	pos := StripArgs(args)
	if len(pos) < 2 {
		return "", cordebug.Failf("Command requires at least 2 arguments")
	}
	name, expr := pos[0], pos[1]
	// The '*' alias stands for the expression in the next positional
	// argument.
	if expr == "*" && len(pos) >= 3 {
		expr = pos[2]
	}

	v, err := p.dbg.CreateVar(threadID, frameLevel, name, expr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`name="%s",value="%s"`, EscapeValue(v.Name), EscapeValue(v.Value)), nil
}

func (p *Protocol) cmdVarListChildren(args []string) (string, error) {
	printValues := valuesOmit
	if len(args) > 0 {
		switch args[0] {
		case "1", "--all-values":
			printValues = valuesAll
			args = args[1:]
		case "2", "--simple-values":
			printValues = valuesSimple
			args = args[1:]
		}
	}

	pos := StripArgs(args)
	if len(pos) == 0 {
		return "", cordebug.Failf("Command requires an argument")
	}
	childStart, childEnd := 0, debugger.MaxFrame
	GetIndices(pos, &childStart, &childEnd)

	total, page, err := p.dbg.ListChildren(childStart, childEnd, pos[0])
	if err != nil {
		return "", err
	}
	return formatChildren(total, page, printValues, childEnd < total), nil
}

func (p *Protocol) cmdVarDelete(args []string) (string, error) {
	if len(args) < 1 {
		return "", cordebug.Failf("Command requires at least 1 argument")
	}
	p.dbg.DeleteVar(args[0])
	return "", nil
}

func (p *Protocol) cmdVarShowAttributes(_ []string) (string, error) {
	return `status="noneditable"`, nil
}

func (p *Protocol) cmdFileExecAndSymbols(args []string) (string, error) {
	if len(args) == 0 {
		return "", cordebug.NewError(cordebug.StatusInvalidArg, "")
	}
	p.fileExec = args[0]
	return "", nil
}

func (p *Protocol) cmdEnvironmentCd(args []string) (string, error) {
	if len(args) == 0 {
		return "", cordebug.NewError(cordebug.StatusInvalidArg, "")
	}
	if err := os.Chdir(args[0]); err != nil {
		return "", cordebug.Failf("%v", err)
	}
	return "", nil
}

func (p *Protocol) cmdGdbSet(args []string) (string, error) {
	if len(args) == 2 && args[0] == "just-my-code" {
		p.dbg.SetJustMyCode(args[1] == "1")
	}
	return "", nil
}

func (p *Protocol) cmdGdbExit(_ []string) (string, error) {
	p.exit = true
	if err := p.dbg.Terminate(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to terminate debuggee on exit")
	}
	return "", nil
}

func (p *Protocol) cmdHandshake(args []string) (string, error) {
	if len(args) > 0 && args[0] == "init" {
		return `request="AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="`, nil
	}
	return "", nil
}

func (p *Protocol) cmdInterpreterExec(_ []string) (string, error) {
	return "", nil
}
