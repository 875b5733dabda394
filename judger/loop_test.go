package judger

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/language"
	"github.com/coderun/go-coderun/types"
	"go.uber.org/zap/zaptest"
)

type fakeExecutor struct {
	calls atomic.Int32
	fn    func(text string) (envexec.Result, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, s envexec.SourceUnit) (envexec.Result, error) {
	f.calls.Add(1)
	return f.fn(s.Text())
}

func completed(stdout, stderr string) envexec.Result {
	d, m := time.Millisecond, 1.5
	return envexec.Result{
		Outcome:  envexec.OutcomeCompleted,
		Stdout:   stdout,
		Stderr:   stderr,
		Runtime:  &d,
		MemoryMB: &m,
	}
}

func TestCompareOrderAndPassed(t *testing.T) {
	// the fake echoes the embedded input, user code "bad" writes to stderr
	e := &fakeExecutor{fn: func(text string) (envexec.Result, error) {
		time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
		in := text[strings.LastIndex(text, "__coderun_epilogue(")+len("__coderun_epilogue("):]
		in = strings.TrimSuffix(strings.TrimSpace(in), ")")
		if strings.HasPrefix(text, "bad") {
			return completed(in, "Traceback"), nil
		}
		if strings.HasPrefix(text, "wrong") {
			return completed(in+"!", ""), nil
		}
		return completed(in, ""), nil
	}}
	j := New(e, language.Python{}, 4, zaptest.NewLogger(t))

	cases := make([]types.TestCase, 20)
	for i := range cases {
		cases[i] = types.TestCase{ID: 100 - i, Input: "x"}
	}

	for _, tc := range []struct {
		user   string
		passed bool
	}{
		{"good", true},
		{"bad", false},
		{"wrong", false},
	} {
		rt, err := j.Compare(context.Background(), tc.user, "solution", cases)
		if err != nil {
			t.Fatal(err)
		}
		if rt.Error != "" {
			t.Fatalf("unexpected harness error %s", rt.Error)
		}
		if len(rt.Results) != len(cases) {
			t.Fatalf("expected %d results, got %d", len(cases), len(rt.Results))
		}
		for i, r := range rt.Results {
			if r.ID != cases[i].ID {
				t.Fatalf("result %d has id %d, want %d", i, r.ID, cases[i].ID)
			}
			if r.Passed != tc.passed {
				t.Fatalf("%s: case %d passed=%v", tc.user, r.ID, r.Passed)
			}
			if r.SolutionRuntime == nil || r.UserRuntime == nil || r.SolutionMemory == nil || r.UserMemory == nil {
				t.Fatalf("measurements missing: %+v", r)
			}
		}
	}
}

func TestCompareMalformedInput(t *testing.T) {
	e := &fakeExecutor{fn: func(string) (envexec.Result, error) {
		return completed("", ""), nil
	}}
	j := New(e, language.Python{}, 1, zaptest.NewLogger(t))

	rt, err := j.Compare(context.Background(), "x = 1", "x = 1", []types.TestCase{
		{ID: 1, Input: "x"},
		{ID: 2, Input: "   "},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rt.Error == "" || rt.Results == nil || len(rt.Results) != 0 {
		t.Fatalf("expected harness error with empty results, got %+v", rt)
	}
	if n := e.calls.Load(); n != 0 {
		t.Fatalf("executor called %d times before harness error", n)
	}
}

func TestCompareExecError(t *testing.T) {
	boom := &envexec.ExecError{Op: "spawn", Err: errors.New("no interpreter")}
	e := &fakeExecutor{fn: func(string) (envexec.Result, error) {
		return envexec.Result{Outcome: envexec.OutcomeRunnerError}, boom
	}}
	j := New(e, language.Python{}, 2, zaptest.NewLogger(t))

	_, err := j.Compare(context.Background(), "x = 1", "x = 1", []types.TestCase{{ID: 1, Input: "x"}, {ID: 2, Input: "x"}})
	var ee *envexec.ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecError, got %v", err)
	}
}

func TestCompareTimedOutSide(t *testing.T) {
	e := &fakeExecutor{fn: func(text string) (envexec.Result, error) {
		if strings.HasPrefix(text, "while") {
			return envexec.Result{Outcome: envexec.OutcomeTimedOut, Stderr: envexec.TimedOutMessage}, nil
		}
		return completed("1", ""), nil
	}}
	j := New(e, language.Python{}, 1, zaptest.NewLogger(t))

	rt, err := j.Compare(context.Background(), "while True: pass", "x = 1", []types.TestCase{{ID: 1, Input: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	r := rt.Results[0]
	if r.Passed || r.UserError != envexec.TimedOutMessage || r.UserRuntime != nil || r.SolutionRuntime == nil {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestCompareEmpty(t *testing.T) {
	j := New(&fakeExecutor{}, language.Python{}, 1, nil)
	rt, err := j.Compare(context.Background(), "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rt.Results == nil || len(rt.Results) != 0 || rt.Error != "" {
		t.Fatalf("unexpected %+v", rt)
	}
}
