package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/types"
	"github.com/coderun/go-coderun/worker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const saveTimeout = 10 * time.Second

// ErrShutdown is returned for jobs submitted after Shutdown
var ErrShutdown = errors.New("jobqueue: shut down")

// Config defines the job service dependencies
type Config struct {
	Store  jobstore.Store
	Worker worker.Worker
	Logger *zap.Logger

	// JobObserver is called with every job reaching a terminal status
	JobObserver func(*jobstore.Job)
}

// Service accepts jobs, runs them on the worker and records their status
type Service struct {
	store    jobstore.Store
	worker   worker.Worker
	logger   *zap.Logger
	observer func(*jobstore.Job)
	newID    func() string

	// jobs outlive the request that submitted them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// held for reading while a job is registered in wg
	mu     sync.RWMutex
	closed bool
}

// New creates the job service
func New(c Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    c.Store,
		worker:   c.Worker,
		logger:   logger,
		observer: c.JobObserver,
		newID:    uuid.NewString,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// EnqueueExecute submits a single execution and returns the job id
func (s *Service) EnqueueExecute(ctx context.Context, code string) (string, error) {
	return s.enqueue(ctx, &worker.Request{Code: code})
}

// EnqueueProblem submits a problem comparison and returns the job id
func (s *Service) EnqueueProblem(ctx context.Context, p worker.Problem) (string, error) {
	return s.enqueue(ctx, &worker.Request{Problem: &p})
}

func (s *Service) enqueue(ctx context.Context, req *worker.Request) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrShutdown
	}

	req.RequestID = s.newID()
	j := &jobstore.Job{
		ID:        req.RequestID,
		Kind:      req.Kind(),
		Status:    types.JobPending,
		CreatedAt: time.Now(),
	}
	if err := s.store.Save(ctx, j); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rt := <-s.worker.Submit(s.ctx, req)
		s.finish(j, rt)
	}()
	return j.ID, nil
}

func (s *Service) finish(j *jobstore.Job, rt worker.Response) {
	j.FinishedAt = time.Now()
	if rt.Error != nil {
		j.Status = types.JobFailed
		j.Error = rt.Error.Error()
		s.logger.Warn("job failed", zap.String("id", j.ID), zap.String("kind", string(j.Kind)), zap.Error(rt.Error))
	} else {
		j.Status = types.JobFinished
		j.Result = rt.Result
		j.Problem = rt.Problem
		s.logger.Debug("job finished", zap.String("id", j.ID), zap.String("kind", string(j.Kind)),
			zap.Duration("elapsed", j.FinishedAt.Sub(j.CreatedAt)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.store.Save(ctx, j); err != nil {
		s.logger.Error("save job status", zap.String("id", j.ID), zap.Error(err))
	}
	if s.observer != nil {
		s.observer(j)
	}
}

// Status returns the stored job, unknown ids are reported with status
// not_found and no error
func (s *Service) Status(ctx context.Context, id string) (*jobstore.Job, error) {
	j, err := s.store.Get(ctx, id)
	if errors.Is(err, jobstore.ErrNotFound) {
		return &jobstore.Job{ID: id, Status: types.JobNotFound}, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Shutdown rejects new jobs, cancels running ones and waits until their
// status is recorded
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
