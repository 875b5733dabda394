package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/types"
)

// ErrNotFound is returned by Get for unknown or expired jobs
var ErrNotFound = errors.New("job not found")

// Job is the stored state of a submitted job
type Job struct {
	ID     string          `json:"id"`
	Kind   types.JobKind   `json:"kind"`
	Status types.JobStatus `json:"status"`

	// set once finished, Result for execute jobs and Problem for problem jobs
	Result  *envexec.Result      `json:"result,omitempty"`
	Problem *types.ProblemResult `json:"problem,omitempty"`

	// engine failure of a failed job
	Error string `json:"error,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
}

// Store defines the job status store
type Store interface {
	Save(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
}
