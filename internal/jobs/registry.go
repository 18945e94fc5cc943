// Package jobs implements the job/status registry (C7): a process-wide,
// thread-safe map of in-flight and completed work, keyed by (project,file)
// or a sentinel key like "{project}_export". It lives for the process
// lifetime only — a restart loses status, which is fine because the
// durable truth is on disk (the artifact store), not in this registry.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
)

// Registry is the job/status registry. The zero value is not usable; use
// New.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*model.JobStatus
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*model.JobStatus)}
}

// Key builds the canonical (project,file) registry key.
func Key(project, file string) string {
	return fmt.Sprintf("%s/%s", project, file)
}

// ExportKey builds the sentinel key for a project-wide export job.
func ExportKey(project string) string {
	return fmt.Sprintf("%s_export", project)
}

// ErrAlreadyProcessing is returned by Start when the key is already in the
// processing state — the orchestrator must not be invoked twice
// concurrently on the same (project,file).
type ErrAlreadyProcessing struct {
	Key string
}

func (e ErrAlreadyProcessing) Error() string {
	return fmt.Sprintf("jobs: %s is already processing", e.Key)
}

// Start registers a key as processing. It rejects a duplicate Start on an
// already-processing key with ErrAlreadyProcessing: a given (project,file)
// must only ever have one writer in flight at a time.
func (r *Registry) Start(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[key]; ok && existing.State == model.JobProcessing {
		return ErrAlreadyProcessing{Key: key}
	}

	r.entries[key] = &model.JobStatus{
		Key:       key,
		State:     model.JobProcessing,
		Progress:  0,
		StartedAt: now(),
	}
	return nil
}

// Update advances a key's progress/message/stage without changing its
// overall state.
func (r *Registry) Update(key string, progress int, message, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		entry = &model.JobStatus{Key: key, State: model.JobProcessing, StartedAt: now()}
		r.entries[key] = entry
	}
	entry.Progress = progress
	entry.Message = message
	entry.Stage = stage
}

// Finish marks a key as completed or failed, with a closing message.
func (r *Registry) Finish(key string, state model.JobState, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		entry = &model.JobStatus{Key: key, StartedAt: now()}
		r.entries[key] = entry
	}
	entry.State = state
	entry.Message = message
	if state == model.JobCompleted {
		entry.Progress = 100
	}
}

// Snapshot returns a defensive copy of every tracked job, safe to read
// without holding the registry's lock.
func (r *Registry) Snapshot() []model.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.JobStatus, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// Get returns a copy of one key's status, and whether it exists.
func (r *Registry) Get(key string) (model.JobStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[key]
	if !ok {
		return model.JobStatus{}, false
	}
	return *entry, true
}

// now is a seam so tests can avoid depending on wall-clock time if needed;
// production code always calls time.Now.
var now = time.Now
