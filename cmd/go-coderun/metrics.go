package main

import (
	"context"
	"os"
	"sync"

	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/filestore"
	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/types"
	"github.com/coderun/go-coderun/worker"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "coderun"
)

var (
	// 1ms -> 10s
	timeBuckets = []float64{
		0.001, 0.002, 0.005, 0.008, 0.010, 0.025, 0.050, 0.075, 0.1, 0.2,
		0.4, 0.6, 0.8, 1.0, 1.5, 2, 5, 10,
	}

	// 1MB -> 4GB
	memoryBucket = prometheus.ExponentialBuckets(1, 2, 13)
	// 256 byte (1<<8) -> 256m (1<<28)
	fileSizeBucket = prometheus.ExponentialBuckets(1<<8, 2, 20)

	execErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "error",
		Help:      "Number of exec query returns error",
	})

	execOutcomeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "execution_total",
		Help:      "Number of executions by outcome",
	}, []string{"outcome"})

	execTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "time_seconds",
		Help:      "Histogram for the running time",
		Buckets:   timeBuckets,
	}, []string{"outcome"})

	execMemHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "memory_megabytes",
		Help:      "Histgram for the peak memory",
		Buckets:   memoryBucket,
	}, []string{"outcome"})

	caseCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "test_case_total",
		Help:      "Number of compared test cases by verdict",
	}, []string{"passed"})

	jobCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "job_total",
		Help:      "Number of jobs by kind and final status",
	}, []string{"kind", "status"})

	jobTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "job_seconds",
		Help:      "Histogram for the time from submission to final status",
		Buckets:   timeBuckets,
	}, []string{"kind"})

	fsSizeHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "file_size_bytes",
		Help:      "Histgram for the source file size",
		Buckets:   fileSizeBucket,
	})

	fsTotalCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "file_current_total",
		Help:      "Total number of current files in the file store",
	})
)

func init() {
	prometheus.MustRegister(execErrorCount, execOutcomeCount)
	prometheus.MustRegister(execTimeHist, execMemHist)
	prometheus.MustRegister(caseCount)
	prometheus.MustRegister(jobCount, jobTimeHist)
	prometheus.MustRegister(fsSizeHist, fsTotalCount)
}

// execObserve counts verdicts, executions are observed by metricsExecutor
func execObserve(res worker.Response) {
	if res.Problem != nil {
		for _, c := range res.Problem.Results {
			if c.Passed {
				caseCount.WithLabelValues("true").Inc()
			} else {
				caseCount.WithLabelValues("false").Inc()
			}
		}
	}
}

func observeResult(r envexec.Result) {
	outcome := r.Outcome.String()
	execOutcomeCount.WithLabelValues(outcome).Inc()
	if r.Runtime != nil {
		execTimeHist.WithLabelValues(outcome).Observe(r.Runtime.Seconds())
	}
	if r.MemoryMB != nil {
		execMemHist.WithLabelValues(outcome).Observe(*r.MemoryMB)
	}
}

func jobObserve(j *jobstore.Job) {
	jobCount.WithLabelValues(string(j.Kind), string(j.Status)).Inc()
	if j.Status == types.JobFinished || j.Status == types.JobFailed {
		jobTimeHist.WithLabelValues(string(j.Kind)).Observe(j.FinishedAt.Sub(j.CreatedAt).Seconds())
	}
}

var _ envexec.Executor = &metricsExecutor{}

// metricsExecutor observes every single execution including the ones of
// problem comparisons
type metricsExecutor struct {
	envexec.Executor
}

func (e *metricsExecutor) Execute(ctx context.Context, s envexec.SourceUnit) (envexec.Result, error) {
	r, err := e.Executor.Execute(ctx, s)
	if err != nil {
		execErrorCount.Inc()
		return r, err
	}
	observeResult(r)
	return r, nil
}

var _ filestore.FileStore = &metricsFileStore{}

type metricsFileStore struct {
	mu sync.Mutex
	filestore.FileStore
	files map[string]struct{}
}

func newMetricsFileStore(fs filestore.FileStore) filestore.FileStore {
	return &metricsFileStore{
		FileStore: fs,
		files:     make(map[string]struct{}),
	}
}

func (m *metricsFileStore) New(suffix string) (*os.File, error) {
	f, err := m.FileStore.New(suffix)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[f.Name()] = struct{}{}
	fsTotalCount.Inc()
	return f, nil
}

func (m *metricsFileStore) Remove(path string) error {
	if fi, err := os.Stat(path); err == nil {
		fsSizeHist.Observe(float64(fi.Size()))
	}
	err := m.FileStore.Remove(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		delete(m.files, path)
		fsTotalCount.Dec()
	}
	return err
}
