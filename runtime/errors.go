package runtime

import (
	"fmt"
	"strings"
)

// InterpretResult is the top-level outcome Interpret hands back to the CLI.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CompileError is one diagnostic produced by the compiler: a lex or parse
// failure tied to a source line and, where available, the offending
// lexeme. Formatted as `[line L] Error at '<lexeme>' | at end | : <msg>`.
type CompileError struct {
	Line    int
	Where   string // "at '<lexeme>'" or "at end" or "" for lex-only errors
	Message string
}

func (e *CompileError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error %s: %s", e.Line, e.Where, e.Message)
}

// RuntimeError is a fault raised by the VM dispatch loop. Trace holds one
// formatted line per active call frame, newest first, matching the
// stack-trace contract in spec.md §4.E / §7.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	if len(e.Trace) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(e.Trace, "\n")
}
