package mi

import (
	"strconv"
	"strings"
)

// Tokenize splits a command line into whitespace-separated tokens with
// double-quote grouping and backslash escaping inside quotes.
func Tokenize(s string) []string {
	const (
		stateSpace = iota
		stateToken
		stateQuoted
		stateEscape
	)

	isDelim := func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r'
	}

	var tokens []string
	state := stateSpace
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case stateSpace:
			if isDelim(c) {
				continue
			}
			tokens = append(tokens, "")
			if c == '"' {
				state = stateQuoted
			} else {
				state = stateToken
				tokens[len(tokens)-1] += string(c)
			}
		case stateToken:
			if isDelim(c) {
				state = stateSpace
			} else {
				tokens[len(tokens)-1] += string(c)
			}
		case stateQuoted:
			switch c {
			case '\\':
				state = stateEscape
			case '"':
				state = stateSpace
			default:
				tokens[len(tokens)-1] += string(c)
			}
		case stateEscape:
			tokens[len(tokens)-1] += string(c)
			state = stateQuoted
		}
	}
	return tokens
}

// ParseLine parses one protocol input line into its optional decimal
// token prefix, command name and arguments. The token, when present,
// immediately precedes the mandatory '-' before the command name.
func ParseLine(line string) (token, command string, args []string, ok bool) {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return "", "", nil, false
	}

	head := tokens[0]
	i := strings.IndexFunc(head, func(r rune) bool { return r < '0' || r > '9' })
	if i < 0 || head[i] != '-' {
		return "", "", nil, false
	}
	return head[:i], head[i+1:], tokens[1:], true
}

// parseInt converts s to an int, reporting success.
func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// StripArgs returns args with every "--name value" pair removed.
func StripArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "--") && i+1 < len(args) {
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}

// GetIntArg extracts the integer following the named option, falling
// back to defaultValue when the option is absent or malformed.
func GetIntArg(args []string, name string, defaultValue int) int {
	for i, a := range args {
		if a != name || i+1 >= len(args) {
			continue
		}
		if v, ok := parseInt(args[i+1]); ok {
			return v
		}
		return defaultValue
	}
	return defaultValue
}

// GetIndices extracts a pair of integers from the tail of args, used
// for frame and child range bounds. Both out-parameters are left
// untouched unless the last two arguments parse cleanly.
func GetIndices(args []string, index1, index2 *int) bool {
	if len(args) < 2 {
		return false
	}
	v1, ok := parseInt(args[len(args)-2])
	if !ok {
		return false
	}
	v2, ok := parseInt(args[len(args)-1])
	if !ok {
		return false
	}
	*index1, *index2 = v1, v2
	return true
}

// ParseBreakpointSpec parses break-insert arguments: optional -f and
// -c <condition> flags followed by "<file>:<line>".
func ParseBreakpointSpec(args []string) (file string, line int, condition string, ok bool) {
	rest := StripArgs(args)

	var filtered []string
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "-f":
			// Pending-breakpoint force flag; all breakpoints may be
			// pending here, so it carries no extra meaning.
		case "-c":
			if i+1 < len(rest) {
				i++
				condition = rest[i]
			}
		default:
			filtered = append(filtered, rest[i])
		}
	}
	if len(filtered) == 0 {
		return "", 0, "", false
	}

	spec := filtered[0]
	i := strings.LastIndex(spec, ":")
	if i < 0 {
		return "", 0, "", false
	}
	line, lineOK := parseInt(spec[i+1:])
	if !lineOK || line <= 0 {
		return "", 0, "", false
	}
	return spec[:i], line, condition, true
}
