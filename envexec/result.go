package envexec

import (
	"fmt"
	"time"
)

// TimedOutMessage is the stderr reported for an execution killed at its deadline
const TimedOutMessage = "Execution timed out."

// Result defines the observation of a single execution.
// Runtime and MemoryMB are set only when the outcome is Completed.
type Result struct {
	Outcome  Outcome        `json:"outcome"`
	Stdout   string         `json:"stdout"`
	Stderr   string         `json:"stderr"`
	Runtime  *time.Duration `json:"runtime,omitempty"`
	MemoryMB *float64       `json:"memoryMB,omitempty"`
}

func (r Result) String() string {
	type Result struct {
		Outcome  Outcome
		Stdout   string
		Stderr   string
		Runtime  string
		MemoryMB string
	}
	d := Result{
		Outcome:  r.Outcome,
		Stdout:   r.Stdout,
		Stderr:   r.Stderr,
		Runtime:  "-",
		MemoryMB: "-",
	}
	if r.Runtime != nil {
		d.Runtime = r.Runtime.String()
	}
	if r.MemoryMB != nil {
		d.MemoryMB = fmt.Sprintf("%.3f", *r.MemoryMB)
	}
	return fmt.Sprintf("%+v", d)
}

func timedOutResult() Result {
	return Result{
		Outcome: OutcomeTimedOut,
		Stderr:  TimedOutMessage,
	}
}

// ExecError is returned when the engine could not carry out an execution,
// as opposed to the program failing on its own
type ExecError struct {
	Op  string // store, write, spawn, wait, cancel
	Err error
}

func (e *ExecError) Error() string {
	return "execute: " + e.Op + ": " + e.Err.Error()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func execError(op string, err error) (Result, error) {
	return Result{Outcome: OutcomeRunnerError, Stderr: err.Error()}, &ExecError{Op: op, Err: err}
}
