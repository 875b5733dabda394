package jobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/types"
	"github.com/go-redis/redis/v8"
)

func testJobs() []*Job {
	d, m := 20*time.Millisecond, 9.5
	return []*Job{
		{
			ID:        "exec",
			Kind:      types.JobExecute,
			Status:    types.JobFinished,
			Result:    &envexec.Result{Outcome: envexec.OutcomeCompleted, Stdout: "5", Runtime: &d, MemoryMB: &m},
			CreatedAt: time.Unix(100, 0).UTC(),
		},
		{
			ID:     "problem",
			Kind:   types.JobProblem,
			Status: types.JobFinished,
			Problem: &types.ProblemResult{Results: []types.ComparisonResult{
				{ID: 1, Input: "x", SolutionOutput: "5", UserOutput: "5", Passed: true, SolutionRuntime: &d, UserMemory: &m},
			}},
			CreatedAt: time.Unix(100, 0).UTC(),
		},
		{
			ID:        "failed",
			Kind:      types.JobExecute,
			Status:    types.JobFailed,
			Error:     "execute: spawn: not found",
			CreatedAt: time.Unix(100, 0).UTC(),
		},
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	for _, j := range testJobs() {
		if err := s.Save(ctx, j); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, j.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != j.Status || got.Kind != j.Kind || got.Error != j.Error {
			t.Fatalf("got %+v, want %+v", got, j)
		}
		if (got.Result == nil) != (j.Result == nil) || (got.Problem == nil) != (j.Problem == nil) {
			t.Fatalf("payload mismatch: %+v", got)
		}
		if j.Result != nil && (got.Result.Outcome != j.Result.Outcome || *got.Result.Runtime != *j.Result.Runtime) {
			t.Fatalf("result mismatch: %v", got.Result)
		}
		if j.Problem != nil && (len(got.Problem.Results) != 1 || !got.Problem.Results[0].Passed) {
			t.Fatalf("problem mismatch: %+v", got.Problem)
		}
	}

	// status transitions overwrite
	j := &Job{ID: "t", Kind: types.JobExecute, Status: types.JobPending}
	if err := s.Save(ctx, j); err != nil {
		t.Fatal(err)
	}
	j.Status = types.JobFinished
	if err := s.Save(ctx, j); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Get(ctx, "t"); err != nil || got.Status != types.JobFinished {
		t.Fatalf("unexpected %+v %v", got, err)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory(time.Hour))
}

func TestMemoryStoreExpire(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Save(ctx, &Job{ID: "a", Status: types.JobPending}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired, got %v", err)
	}
	if n := m.Sweep(); n != 1 || m.Len() != 0 {
		t.Fatalf("sweep removed %d, left %d", n, m.Len())
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	j := &Job{ID: "a", Status: types.JobPending}
	if err := m.Save(ctx, j); err != nil {
		t.Fatal(err)
	}
	j.Status = types.JobFailed
	got, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.JobPending {
		t.Fatal("store shares state with caller")
	}
}

func newRedisStore(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, "", ttl), mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
	if !mr.Exists(DefaultPrefix + "exec") {
		t.Fatal("key not stored under prefix")
	}
}

func TestRedisStoreExpire(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := s.Save(ctx, &Job{ID: "a", Status: types.JobPending}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(DefaultPrefix + "a"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestRedisStoreCorrupted(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	if err := mr.Set(DefaultPrefix+"bad", "{"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background(), "bad"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
