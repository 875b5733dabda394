package envexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/coderun/go-coderun/filestore"
	"go.uber.org/zap"
)

// Defaults applied by NewRunner for zero config values
const (
	DefaultTimeout     = 5 * time.Second
	DefaultOutputLimit = Size(64 << 20)
	DefaultSuffix      = ".py"

	// bounds waiting on pipes held open by an escaped descendant
	waitDelay = time.Second
)

var _ Executor = &Runner{}

// Config defines the runner parameters, all given explicitly by the caller
type Config struct {
	// Interpreter is the argv prefix, the source path is appended as the
	// sole positional argument
	Interpreter []string

	// Timeout is the wall clock deadline of every execution
	Timeout time.Duration

	// FileStore is the namespace where source units are written
	FileStore filestore.FileStore

	// SourceSuffix is appended to every stored file name
	SourceSuffix string

	// WorkDir is the working directory of the child, the file system root
	// when empty. Never the file store directory.
	WorkDir string

	// Env of the child, nil inherits the environment of this process
	Env []string

	// OutputLimit caps each of stdout and stderr
	OutputLimit Size

	Logger *zap.Logger
}

// Runner is the ExecutionRunner: it writes a source unit to an ephemeral
// file, runs the interpreter on it and reports what happened
type Runner struct {
	args        []string
	timeout     time.Duration
	fs          filestore.FileStore
	suffix      string
	workDir     string
	env         []string
	outputLimit Size
	logger      *zap.Logger
}

// NewRunner validates the config and creates a runner
func NewRunner(c Config) (*Runner, error) {
	if len(c.Interpreter) == 0 || c.Interpreter[0] == "" {
		return nil, errors.New("runner: interpreter not specified")
	}
	r := &Runner{
		args:        slices.Clone(c.Interpreter),
		timeout:     c.Timeout,
		fs:          c.FileStore,
		suffix:      c.SourceSuffix,
		workDir:     c.WorkDir,
		env:         c.Env,
		outputLimit: c.OutputLimit,
		logger:      c.Logger,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.outputLimit == 0 {
		r.outputLimit = DefaultOutputLimit
	}
	if r.suffix == "" {
		r.suffix = DefaultSuffix
	}
	if r.workDir == "" {
		r.workDir = string(filepath.Separator)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.fs == nil {
		fs, err := filestore.NewFileLocalStore("")
		if err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
		r.fs = fs
	}
	return r, nil
}

// Timeout returns the configured deadline
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Execute runs one source unit. A non-nil error is always an *ExecError and
// comes with a RunnerError result.
func (r *Runner) Execute(ctx context.Context, src SourceUnit) (Result, error) {
	if err := ctx.Err(); err != nil {
		return execError("cancel", err)
	}

	f, err := r.fs.New(r.suffix)
	if err != nil {
		return execError("store", err)
	}
	path := f.Name()
	defer func() {
		if err := r.fs.Remove(path); err != nil {
			r.logger.Warn("remove source file", zap.String("path", path), zap.Error(err))
		}
	}()

	if _, err := f.WriteString(src.Text()); err != nil {
		f.Close()
		return execError("write", err)
	}
	if err := f.Close(); err != nil {
		return execError("write", err)
	}
	return r.run(ctx, path)
}

func (r *Runner) run(ctx context.Context, path string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(slices.Clone(r.args[1:]), path)
	c := exec.CommandContext(runCtx, r.args[0], args...)
	c.Dir = r.workDir
	c.Env = r.env
	stdout := newLimitedBuffer(r.outputLimit)
	stderr := newLimitedBuffer(r.outputLimit)
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = waitDelay
	setProcAttr(c)

	start := time.Now()
	if err := c.Start(); err != nil {
		return execError("spawn", err)
	}
	err := c.Wait()
	runtime := time.Since(start)

	// caller gave up, the result would not be meaningful
	if cerr := ctx.Err(); cerr != nil {
		return execError("cancel", cerr)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Debug("execution timed out", zap.String("path", path), zap.Duration("timeout", r.timeout))
		return timedOutResult(), nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.As(err, &exitErr), errors.Is(err, exec.ErrWaitDelay):
	default:
		return execError("wait", err)
	}

	rss, ok := peakRSS(c.ProcessState)
	if !ok {
		r.logger.Debug("peak rss unavailable", zap.String("path", path))
	}
	memory := float64(rss) / (1 << 20)
	if stdout.Truncated() || stderr.Truncated() {
		r.logger.Debug("output truncated", zap.String("path", path), zap.Stringer("limit", r.outputLimit))
	}

	result := Result{
		Outcome:  OutcomeCompleted,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Runtime:  &runtime,
		MemoryMB: &memory,
	}
	r.logger.Debug("execution completed",
		zap.String("path", path),
		zap.Int("exitCode", c.ProcessState.ExitCode()),
		zap.Duration("runtime", runtime),
		zap.Float64("memoryMB", memory))
	return result, nil
}
