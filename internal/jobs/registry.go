// Package jobs holds the job registry and the orchestrator driving the job
// lifecycle state machine.
package jobs

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/entity"
)

// Registry is the in-memory source of truth for job records. It is constructed
// at service start and cleared only by process restart; records are never
// deleted during their own lifetime. Updates are applied as whole-record
// replacements, so readers may observe a stale snapshot but never a torn one.
type Registry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]entity.Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]entity.Job)}
}

// Put inserts or replaces a job record.
func (r *Registry) Put(job entity.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
}

// Get returns a snapshot of the job record.
func (r *Registry) Get(id uuid.UUID) (entity.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return entity.Job{}, false
	}
	return job.Clone(), true
}

// Update applies fn to a copy of the record and replaces the stored record
// only when fn succeeds. The check-and-transition is atomic with respect to
// other updaters. Returns the resulting snapshot.
func (r *Registry) Update(id uuid.UUID, fn func(*entity.Job) error) (entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.jobs[id]
	if !ok {
		return entity.Job{}, common.NewAppError(common.CodeNotFound, fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return cur.Clone(), err
	}
	r.jobs[id] = next
	return next.Clone(), nil
}

// Len reports the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
