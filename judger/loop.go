package judger

import (
	"context"
	"fmt"

	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type caseUnits struct {
	solution envexec.SourceUnit
	user     envexec.SourceUnit
}

// Compare runs both programs on every case and returns the results in the
// order of cases. A malformed case fails the whole comparison through
// ProblemResult.Error before anything runs. The returned error is non-nil
// only when the executor failed.
func (j *Judger) Compare(ctx context.Context, userCode, solutionCode string, cases []types.TestCase) (types.ProblemResult, error) {
	units := make([]caseUnits, len(cases))
	for i, c := range cases {
		e, err := j.Epilogue(c.Input)
		if err != nil {
			return types.ProblemResult{
				Results: []types.ComparisonResult{},
				Error:   fmt.Sprintf("test case %d: %v", c.ID, err),
			}, nil
		}
		units[i] = caseUnits{
			solution: envexec.NewSourceUnit(solutionCode, e),
			user:     envexec.NewSourceUnit(userCode, e),
		}
	}

	results := make([]types.ComparisonResult, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(j.Parallelism, 1))
	for i := range cases {
		g.Go(func() error {
			rt, err := j.runCase(gctx, cases[i], units[i])
			if err != nil {
				return fmt.Errorf("test case %d: %w", cases[i].ID, err)
			}
			results[i] = rt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.ProblemResult{}, err
	}
	return types.ProblemResult{Results: results}, nil
}

func (j *Judger) runCase(ctx context.Context, c types.TestCase, u caseUnits) (types.ComparisonResult, error) {
	sol, err := j.Execute(ctx, u.solution)
	if err != nil {
		return types.ComparisonResult{}, err
	}
	usr, err := j.Execute(ctx, u.user)
	if err != nil {
		return types.ComparisonResult{}, err
	}
	rt := compareResults(c, sol, usr)
	j.Logger.Debug("case compared",
		zap.Int("id", c.ID),
		zap.Bool("passed", rt.Passed),
		zap.Stringer("solution", sol.Outcome),
		zap.Stringer("user", usr.Outcome))
	return rt, nil
}

func compareResults(c types.TestCase, sol, usr envexec.Result) types.ComparisonResult {
	return types.ComparisonResult{
		ID:              c.ID,
		Input:           c.Input,
		SolutionOutput:  sol.Stdout,
		UserOutput:      usr.Stdout,
		Passed:          sol.Stderr == "" && usr.Stderr == "" && usr.Stdout == sol.Stdout,
		SolutionError:   sol.Stderr,
		UserError:       usr.Stderr,
		SolutionRuntime: sol.Runtime,
		SolutionMemory:  sol.MemoryMB,
		UserRuntime:     usr.Runtime,
		UserMemory:      usr.MemoryMB,
	}
}
