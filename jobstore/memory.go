package jobstore

import (
	"context"
	"sync"
	"time"
)

var _ Store = &Memory{}

type memoryEntry struct {
	job     Job
	expires time.Time
}

// Memory keeps jobs in process, entries expire after ttl (zero keeps forever)
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

// NewMemory creates an in memory store
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		jobs: make(map[string]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (m *Memory) Save(_ context.Context, j *Job) error {
	e := memoryEntry{job: *j}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = e
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Job, error) {
	m.mu.RLock()
	e, ok := m.jobs[id]
	m.mu.RUnlock()

	if !ok || m.expired(e) {
		return nil, ErrNotFound
	}
	j := e.job
	return &j, nil
}

// Sweep drops expired entries and returns how many were dropped
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.jobs {
		if m.expired(e) {
			delete(m.jobs, id)
			n++
		}
	}
	return n
}

// Len returns the number of entries including expired ones not yet swept
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

func (m *Memory) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
