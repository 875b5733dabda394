package judger

import (
	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/language"
	"go.uber.org/zap"
)

// Judger is the comparison harness: it runs the user code and the reference
// solution on every test case and compares their outputs
type Judger struct {
	envexec.Executor
	language.Language

	// Parallelism bounds the number of cases running at the same time,
	// values below 1 run cases one by one
	Parallelism int

	Logger *zap.Logger
}

// New creates a judger with the given executor and language
func New(e envexec.Executor, l language.Language, parallelism int, logger *zap.Logger) *Judger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judger{
		Executor:    e,
		Language:    l,
		Parallelism: parallelism,
		Logger:      logger,
	}
}
