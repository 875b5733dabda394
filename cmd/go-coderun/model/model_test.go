package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/types"
)

func TestConvertExecuteResult(t *testing.T) {
	d, m := 1500*time.Millisecond, 12.5
	tests := []struct {
		name string
		job  jobstore.Job
		want string
	}{
		{
			name: "finished",
			job: jobstore.Job{Status: types.JobFinished, Result: &envexec.Result{
				Outcome: envexec.OutcomeCompleted, Stdout: "5", Runtime: &d, MemoryMB: &m,
			}},
			want: `{"status":"finished","output":"5","error":"","runtime":1.5,"memory":12.5}`,
		},
		{
			name: "timed out",
			job: jobstore.Job{Status: types.JobFinished, Result: &envexec.Result{
				Outcome: envexec.OutcomeTimedOut, Stderr: envexec.TimedOutMessage,
			}},
			want: `{"status":"finished","output":"","error":"Execution timed out.","runtime":null,"memory":null}`,
		},
		{
			name: "pending",
			job:  jobstore.Job{Status: types.JobPending},
			want: `{"status":"pending","output":"","error":"","runtime":null,"memory":null}`,
		},
		{
			name: "failed",
			job:  jobstore.Job{Status: types.JobFailed, Error: "execute: spawn: boom"},
			want: `{"status":"failed","output":"","error":"Job failed","runtime":null,"memory":null}`,
		},
		{
			name: "not found",
			job:  jobstore.Job{Status: types.JobNotFound},
			want: `{"status":"not_found","output":"","error":"Job not found","runtime":null,"memory":null}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(ConvertExecuteResult(&tc.job))
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tc.want {
				t.Fatalf("got %s, want %s", b, tc.want)
			}
		})
	}
}

func TestConvertProblemResult(t *testing.T) {
	d, m := 250*time.Millisecond, 8.0
	j := jobstore.Job{Status: types.JobFinished, Problem: &types.ProblemResult{Results: []types.ComparisonResult{
		{ID: 2, Input: "x", SolutionOutput: "5", UserOutput: "5", Passed: true, SolutionRuntime: &d, SolutionMemory: &m},
	}}}
	rt := ConvertProblemResult(&j)
	if rt.Status != types.JobFinished || len(rt.Results) != 1 {
		t.Fatalf("unexpected %+v", rt)
	}
	r := rt.Results[0]
	if r.SolutionRuntime == nil || *r.SolutionRuntime != 0.25 || r.UserRuntime != nil || *r.SolutionMemory != 8 {
		t.Fatalf("unexpected %+v", r)
	}

	for _, s := range []types.JobStatus{types.JobPending, types.JobFailed, types.JobNotFound} {
		b, err := json.Marshal(ConvertProblemResult(&jobstore.Job{Status: s}))
		if err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatal(err)
		}
		if res, ok := got["results"].([]any); !ok || len(res) != 0 {
			t.Fatalf("%s: results must be an empty list: %s", s, b)
		}
	}

	harness := ConvertProblemResult(&jobstore.Job{Status: types.JobFinished, Problem: &types.ProblemResult{
		Results: []types.ComparisonResult{}, Error: "test case 1: malformed input",
	}})
	if harness.Error == "" || len(harness.Results) != 0 {
		t.Fatalf("unexpected %+v", harness)
	}
}

func TestConvertProblemRequest(t *testing.T) {
	var req ProblemRequest
	body := `{"userCode":"x = 5","solutionCode":"x = 5","testCases":[{"id":7,"input":"x"},{"id":3,"input":"x + 1"}]}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}
	p := ConvertProblemRequest(&req)
	if p.UserCode != "x = 5" || len(p.TestCases) != 2 || p.TestCases[0].ID != 7 || p.TestCases[1].Input != "x + 1" {
		t.Fatalf("unexpected %+v", p)
	}
}
