package worker

import (
	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/types"
)

// Problem defines a comparison of user code against a reference solution
type Problem struct {
	UserCode     string
	SolutionCode string
	TestCases    []types.TestCase
}

// Request defines single worker request, exactly one of Code or Problem is used
type Request struct {
	RequestID string
	Code      string
	Problem   *Problem
}

// Kind returns the kind of the request
func (r *Request) Kind() types.JobKind {
	if r.Problem != nil {
		return types.JobProblem
	}
	return types.JobExecute
}

// Response defines worker response for single request
type Response struct {
	RequestID string
	Kind      types.JobKind
	Result    *envexec.Result      // set for execute requests
	Problem   *types.ProblemResult // set for problem requests
	Error     error
}
