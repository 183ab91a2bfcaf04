// Package jobs holds the in-memory job registry. Records live only for the
// lifetime of the process.
package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusSucceeded, StatusFailed},
}

func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	ErrNotFound          = errors.New("job not found")
	ErrExists            = errors.New("job already exists")
	ErrTerminal          = errors.New("job is already finished")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

type Job struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	Progress      int       `json:"progress"`
	Error         string    `json:"error,omitempty"`
	ResultRef     string    `json:"result_ref,omitempty"`
	ChunksIndexed int       `json:"chunks_indexed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type record struct {
	mu  sync.Mutex
	job Job
}

// Registry maps job ids to records. The map lock only guards membership;
// each record has its own lock so updates to different jobs never contend.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{records: map[string]*record{}, now: time.Now}
}

// Create registers a PENDING job.
func (r *Registry) Create(id string) (Job, error) {
	if id == "" {
		return Job{}, fmt.Errorf("create job: empty id")
	}
	now := r.now().UTC()
	rec := &record{job: Job{ID: id, Status: StatusPending, CreatedAt: now, UpdatedAt: now}}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; ok {
		return Job{}, fmt.Errorf("%w: %s", ErrExists, id)
	}
	r.records[id] = rec
	return rec.job, nil
}

func (r *Registry) lookup(id string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (Job, bool) {
	rec, ok := r.lookup(id)
	if !ok {
		return Job{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.job, true
}

// Update applies fn to a copy of the job under the record lock and commits it
// only when fn succeeds and the resulting status change is legal. Finished
// jobs cannot be edited.
func (r *Registry) Update(id string, fn func(j *Job) error) (Job, error) {
	rec, ok := r.lookup(id)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.job.Status.Terminal() {
		return rec.job, fmt.Errorf("%w: %s is %s", ErrTerminal, id, rec.job.Status)
	}
	next := rec.job
	if err := fn(&next); err != nil {
		return rec.job, err
	}
	if !canTransition(rec.job.Status, next.Status) {
		return rec.job, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.job.Status, next.Status)
	}
	next.ID = rec.job.ID
	next.CreatedAt = rec.job.CreatedAt
	next.Progress = min(max(next.Progress, 0), 100)
	next.UpdatedAt = r.now().UTC()
	rec.job = next
	return next, nil
}

// List returns copies of every job, oldest first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	out := make([]Job, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.job)
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Evict drops the record regardless of status.
func (r *Registry) Evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	return true
}

// Prune evicts finished jobs last updated more than olderThan ago and
// returns their ids.
func (r *Registry) Prune(olderThan time.Duration) []string {
	cutoff := r.now().UTC().Add(-olderThan)
	var stale []string
	for _, j := range r.List() {
		if j.Status.Terminal() && j.UpdatedAt.Before(cutoff) {
			stale = append(stale, j.ID)
		}
	}
	for _, id := range stale {
		r.Evict(id)
	}
	return stale
}
