package model

import (
	"time"

	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/types"
	"github.com/coderun/go-coderun/worker"
)

// Messages reported for jobs that have no result
const (
	MessageJobFailed   = "Job failed"
	MessageJobNotFound = "Job not found"
)

// ExecuteRequest defines a single execution request
type ExecuteRequest struct {
	Code string `json:"code"`
}

// TestCase defines a test case of a problem request
type TestCase struct {
	ID    int    `json:"id"`
	Input string `json:"input"`
}

// ProblemRequest defines a comparison request
type ProblemRequest struct {
	UserCode     string     `json:"userCode"`
	SolutionCode string     `json:"solutionCode"`
	TestCases    []TestCase `json:"testCases"`
}

// JobResponse is returned after a job is accepted
type JobResponse struct {
	JobID string `json:"job_id"`
}

// ExecuteResult defines the poll response of a single execution
type ExecuteResult struct {
	Status  types.JobStatus `json:"status"`
	Output  string          `json:"output"`
	Error   string          `json:"error"`
	Runtime *float64        `json:"runtime"` // seconds
	Memory  *float64        `json:"memory"`  // MB
}

// ComparisonResult defines the result of one test case
type ComparisonResult struct {
	ID              int      `json:"id"`
	Input           string   `json:"input"`
	SolutionOutput  string   `json:"solutionOutput"`
	UserOutput      string   `json:"userOutput"`
	Passed          bool     `json:"passed"`
	SolutionError   string   `json:"solutionError"`
	UserError       string   `json:"userError"`
	SolutionRuntime *float64 `json:"solutionRuntime"`
	SolutionMemory  *float64 `json:"solutionMemory"`
	UserRuntime     *float64 `json:"userRuntime"`
	UserMemory      *float64 `json:"userMemory"`
}

// ProblemResult defines the poll response of a comparison
type ProblemResult struct {
	Status  types.JobStatus    `json:"status"`
	Results []ComparisonResult `json:"results"`
	Error   string             `json:"error"`
}

// ConvertProblemRequest converts the request into a worker problem
func ConvertProblemRequest(req *ProblemRequest) worker.Problem {
	cases := make([]types.TestCase, 0, len(req.TestCases))
	for _, c := range req.TestCases {
		cases = append(cases, types.TestCase{ID: c.ID, Input: c.Input})
	}
	return worker.Problem{
		UserCode:     req.UserCode,
		SolutionCode: req.SolutionCode,
		TestCases:    cases,
	}
}

// ConvertExecuteResult converts a stored job into the poll response
func ConvertExecuteResult(j *jobstore.Job) ExecuteResult {
	rt := ExecuteResult{Status: j.Status}
	switch j.Status {
	case types.JobNotFound:
		rt.Error = MessageJobNotFound
	case types.JobFailed:
		rt.Error = MessageJobFailed
	case types.JobFinished:
		if r := j.Result; r != nil {
			rt.Output = r.Stdout
			rt.Error = r.Stderr
			rt.Runtime = seconds(r.Runtime)
			rt.Memory = r.MemoryMB
		}
	}
	return rt
}

// ConvertProblemResult converts a stored job into the poll response
func ConvertProblemResult(j *jobstore.Job) ProblemResult {
	rt := ProblemResult{
		Status:  j.Status,
		Results: []ComparisonResult{},
	}
	switch j.Status {
	case types.JobNotFound:
		rt.Error = MessageJobNotFound
	case types.JobFailed:
		rt.Error = MessageJobFailed
	case types.JobFinished:
		if p := j.Problem; p != nil {
			rt.Error = p.Error
			rt.Results = make([]ComparisonResult, 0, len(p.Results))
			for _, r := range p.Results {
				rt.Results = append(rt.Results, convertComparison(r))
			}
		}
	}
	return rt
}

func convertComparison(r types.ComparisonResult) ComparisonResult {
	return ComparisonResult{
		ID:              r.ID,
		Input:           r.Input,
		SolutionOutput:  r.SolutionOutput,
		UserOutput:      r.UserOutput,
		Passed:          r.Passed,
		SolutionError:   r.SolutionError,
		UserError:       r.UserError,
		SolutionRuntime: seconds(r.SolutionRuntime),
		SolutionMemory:  r.SolutionMemory,
		UserRuntime:     seconds(r.UserRuntime),
		UserMemory:      r.UserMemory,
	}
}

func seconds(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	s := d.Seconds()
	return &s
}
