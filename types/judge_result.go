package types

import "time"

// TestCase is a single input of a problem, Input is a source level expression
type TestCase struct {
	ID    int    `json:"id"`
	Input string `json:"input"`
}

// ComparisonResult contains the result of running both programs on one case
type ComparisonResult struct {
	ID    int    `json:"id"`
	Input string `json:"input"`

	// trimmed stdout of each side
	SolutionOutput string `json:"solutionOutput"`
	UserOutput     string `json:"userOutput"`

	Passed bool `json:"passed"`

	// raw stderr of each side
	SolutionError string `json:"solutionError"`
	UserError     string `json:"userError"`

	// detail stats, absent unless the side completed
	SolutionRuntime *time.Duration `json:"solutionRuntime"`
	SolutionMemory  *float64       `json:"solutionMemory"` // MB
	UserRuntime     *time.Duration `json:"userRuntime"`
	UserMemory      *float64       `json:"userMemory"` // MB
}

// ProblemResult contains final result of a comparison
type ProblemResult struct {
	Results []ComparisonResult `json:"results"`
	Error   string             `json:"error"` // harness level failure, Results is empty
}

// PassedCount returns the number of passed cases
func (r ProblemResult) PassedCount() int {
	n := 0
	for _, c := range r.Results {
		if c.Passed {
			n++
		}
	}
	return n
}
