package envexec

import (
	"context"
	"strings"

	"github.com/criyle/go-sandbox/runner"
)

// Size represent data size in bytes
type Size = runner.Size

// Executor runs a single source unit through the interpreter
type Executor interface {
	// Execute returns a *ExecError only when the engine itself failed
	// (storage, spawn, cancellation). Every other failure is reported in Result.
	Execute(context.Context, SourceUnit) (Result, error)
}

// SourceUnit is the program text written for exactly one execution
type SourceUnit struct {
	text string
}

// NewSourceUnit builds a unit from the submitted code followed by optional
// epilogue blocks, each starting on its own line
func NewSourceUnit(code string, epilogue ...string) SourceUnit {
	if len(epilogue) == 0 {
		return SourceUnit{text: code}
	}
	parts := make([]string, 0, len(epilogue)+1)
	parts = append(parts, code)
	parts = append(parts, epilogue...)
	return SourceUnit{text: strings.Join(parts, "\n")}
}

// Text returns the full program text
func (s SourceUnit) Text() string {
	return s.text
}

// Len returns the program size in bytes
func (s SourceUnit) Len() int {
	return len(s.text)
}
