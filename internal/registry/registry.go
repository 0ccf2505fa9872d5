package registry

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"baduanjin-watch/internal/model"
)

// Key identifies the one poller slot a video may hold per operation kind.
type Key struct {
	VideoID int64
	Kind    model.Kind
}

type entry struct {
	job  *model.Job
	stop chan struct{}
}

// Registry is the in-memory map of active jobs. It is the only shared
// mutable state between pollers and the UI; all job field mutation goes
// through Update so readers only ever see consistent snapshots.
type Registry struct {
	mu     sync.Mutex
	active map[Key]*entry
}

func New() *Registry {
	return &Registry{active: make(map[Key]*entry)}
}

// Register creates a job for (videoID, kind) unless one is already active.
// The second return reports whether a new job was created; when false, the
// returned snapshot is the existing job and no new poller may be started.
func (r *Registry) Register(videoID int64, kind model.Kind, pollInterval, timeout time.Duration) (model.Job, bool) {
	key := Key{VideoID: videoID, Kind: kind}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.active[key]; ok {
		return *existing.job, false
	}

	job := &model.Job{
		JobID:        uuid.NewString(),
		VideoID:      videoID,
		Kind:         kind,
		Status:       model.StatusPending,
		StartedAt:    time.Now().UTC(),
		PollInterval: pollInterval,
		Timeout:      timeout,
	}
	r.active[key] = &entry{job: job, stop: make(chan struct{})}
	return *job, true
}

// Unregister removes the entry and signals its poller to stop. Idempotent;
// unregistering an absent key is a no-op.
func (r *Registry) Unregister(videoID int64, kind model.Kind) {
	key := Key{VideoID: videoID, Kind: kind}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.active[key]; ok {
		close(e.stop)
		delete(r.active, key)
	}
}

// Get returns a snapshot of the active job for the key, if any.
func (r *Registry) Get(videoID int64, kind model.Kind) (model.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.active[Key{VideoID: videoID, Kind: kind}]; ok {
		return *e.job, true
	}
	return model.Job{}, false
}

// StopSignal exposes the channel closed on Unregister so the poller loop can
// select on cancellation. Returns false when the key is not active.
func (r *Registry) StopSignal(videoID int64, kind model.Kind) (<-chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.active[Key{VideoID: videoID, Kind: kind}]; ok {
		return e.stop, true
	}
	return nil, false
}

// Update applies fn to the active job under the registry lock and returns a
// snapshot of the result. When the key is no longer registered the update is
// dropped: a response arriving after cancellation must not resurrect the job.
func (r *Registry) Update(videoID int64, kind model.Kind, fn func(*model.Job) error) (model.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[Key{VideoID: videoID, Kind: kind}]
	if !ok {
		return model.Job{}, false, nil
	}
	if err := fn(e.job); err != nil {
		return *e.job, true, err
	}
	return *e.job, true, nil
}

// Snapshot returns copies of all active jobs, ordered by video id then kind
// for stable rendering.
func (r *Registry) Snapshot() []model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]model.Job, 0, len(r.active))
	for _, e := range r.active {
		jobs = append(jobs, *e.job)
	}
	sortJobs(jobs)
	return jobs
}

// Len reports the number of active jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func sortJobs(jobs []model.Job) {
	slices.SortFunc(jobs, func(a, b model.Job) int {
		if a.VideoID != b.VideoID {
			return int(a.VideoID - b.VideoID)
		}
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
}
