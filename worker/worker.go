package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/types"
)

const maxWaiting = 512

// ErrShutdown is reported for requests submitted after Shutdown
var ErrShutdown = errors.New("worker: shut down")

// Comparer runs a problem comparison
type Comparer interface {
	Compare(ctx context.Context, userCode, solutionCode string, cases []types.TestCase) (types.ProblemResult, error)
}

// Config defines worker configuration
type Config struct {
	Executor     envexec.Executor
	Comparer     Comparer
	Parallelism  int
	ExecObserver func(Response)
}

// Worker defines interface for executor
type Worker interface {
	Start()
	Submit(context.Context, *Request) <-chan Response
	Shutdown()
}

// worker defines executor worker
type worker struct {
	executor    envexec.Executor
	comparer    Comparer
	parallelism int

	execObserver func(Response)

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	workCh    chan workRequest
	done      chan struct{}

	// held for reading while sending to workCh so that nothing is queued
	// after Shutdown drained it
	mu     sync.RWMutex
	closed bool
}

type workRequest struct {
	*Request
	context.Context
	resultCh chan<- Response
}

// New creates new worker
func New(conf Config) Worker {
	return &worker{
		executor:     conf.Executor,
		comparer:     conf.Comparer,
		parallelism:  max(conf.Parallelism, 1),
		execObserver: conf.ExecObserver,
		workCh:       make(chan workRequest, maxWaiting),
		done:         make(chan struct{}),
	}
}

// Start starts worker loops with given parallelism
func (w *worker) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(w.parallelism)
		for range w.parallelism {
			go w.loop()
		}
	})
}

// Submit submits a single request, the returned channel always receives
// exactly one response
func (w *worker) Submit(ctx context.Context, req *Request) <-chan Response {
	ch := make(chan Response, 1)
	fail := func(err error) <-chan Response {
		ch <- Response{RequestID: req.RequestID, Kind: req.Kind(), Error: err}
		return ch
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return fail(ErrShutdown)
	}
	select {
	case w.workCh <- workRequest{
		Request:  req,
		Context:  ctx,
		resultCh: ch,
	}:
		return ch
	case <-ctx.Done():
		return fail(ctx.Err())
	}
}

// Shutdown waits all worker to finish, queued requests are answered with
// ErrShutdown
func (w *worker) Shutdown() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		close(w.done)
		w.wg.Wait()
		for {
			select {
			case req := <-w.workCh:
				w.reply(req, Response{Error: ErrShutdown})
			default:
				return
			}
		}
	})
}

func (w *worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		default:
		}
		select {
		case req := <-w.workCh:
			w.workDo(req)
		case <-w.done:
			return
		}
	}
}

func (w *worker) workDo(req workRequest) {
	var rt Response
	if err := req.Context.Err(); err != nil {
		rt.Error = err
	} else if req.Problem != nil {
		rt = w.workDoProblem(req.Context, req.Problem)
	} else {
		rt = w.workDoExecute(req.Context, req.Code)
	}
	w.reply(req, rt)
}

func (w *worker) reply(req workRequest, rt Response) {
	rt.RequestID = req.RequestID
	rt.Kind = req.Kind()
	if w.execObserver != nil {
		w.execObserver(rt)
	}
	req.resultCh <- rt
}

func (w *worker) workDoExecute(ctx context.Context, code string) (rt Response) {
	result, err := w.executor.Execute(ctx, envexec.NewSourceUnit(code))
	if err != nil {
		rt.Error = err
		return
	}
	rt.Result = &result
	return
}

func (w *worker) workDoProblem(ctx context.Context, p *Problem) (rt Response) {
	result, err := w.comparer.Compare(ctx, p.UserCode, p.SolutionCode, p.TestCases)
	if err != nil {
		rt.Error = err
		return
	}
	rt.Problem = &result
	return
}
