// Package engine keeps the client's canonical job collection in sync with the
// tracker backend. Mutations are applied optimistically where that is safe and
// rolled back on any remote failure; reads fall back to the local cache when
// the backend is unreachable.
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kiranshivaraju/jobtracker/internal/remote"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// LocalStore is the durable offline slot. cache.JobStore implements it.
type LocalStore interface {
	Save(ctx context.Context, jobs []models.Job) error
	Load(ctx context.Context) ([]models.Job, error)
}

// Connectivity supplies the online flag. netstatus.Monitor implements it.
type Connectivity interface {
	Online() bool
}

// Source tells where the last Load got its data from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// Engine owns the canonical job collection.
//
// The mutex only guards the in-memory state; it is never held across a
// network call. Overlapping mutations each keep their own rollback record and
// whichever resolves last determines the visible state.
type Engine struct {
	client remote.Client
	store  LocalStore
	conn   Connectivity
	now    func() time.Time

	mu     sync.Mutex
	jobs   []models.Job
	filter Filter
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConnectivity sets the online flag source. Without one the engine
// assumes it is always online.
func WithConnectivity(c Connectivity) Option {
	return func(e *Engine) { e.conn = c }
}

// WithClock overrides the time source used for local timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine with an empty canonical state.
func New(client remote.Client, store LocalStore, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		store:  store,
		now:    time.Now,
		jobs:   []models.Job{},
		filter: FilterAll,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Online reports the current connectivity flag.
func (e *Engine) Online() bool {
	return e.conn == nil || e.conn.Online()
}

// Load replaces canonical state with the live job list, or with the cached
// list when offline or when the live fetch fails. An error is returned only
// when no source could be read.
func (e *Engine) Load(ctx context.Context) (Source, error) {
	var liveErr error
	if e.Online() {
		jobs, err := e.client.ListJobs(ctx)
		if err == nil {
			for i := range jobs {
				normalize(&jobs[i])
			}
			slices.SortStableFunc(jobs, func(a, b models.Job) int { return cmp.Compare(a.SortOrder, b.SortOrder) })

			if err := e.store.Save(ctx, jobs); err != nil {
				slog.Warn("writing job cache failed", "error", err)
			}
			e.setJobs(jobs)
			slog.Debug("jobs loaded", "source", SourceRemote, "count", len(jobs))
			return SourceRemote, nil
		}
		liveErr = err
		slog.Warn("live fetch failed, using cache", "error", err)
	}

	jobs, err := e.store.Load(ctx)
	if err != nil {
		if liveErr != nil {
			return "", fmt.Errorf("load jobs: %w", errors.Join(liveErr, err))
		}
		return "", fmt.Errorf("load jobs: %w", err)
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	for i := range jobs {
		normalize(&jobs[i])
	}
	e.setJobs(jobs)
	slog.Debug("jobs loaded", "source", SourceCache, "count", len(jobs))
	return SourceCache, nil
}

// Jobs returns a copy of the canonical collection in display order.
func (e *Engine) Jobs() []models.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.jobs, FilterAll)
}

// Job returns a copy of one job.
func (e *Engine) Job(id string) (models.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := indexOf(e.jobs, id)
	if i < 0 {
		return models.Job{}, false
	}
	return e.jobs[i].Clone(), true
}

// Filtered returns the jobs visible under the active filter.
func (e *Engine) Filtered() []models.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.jobs, e.filter)
}

func (e *Engine) ActiveFilter() Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// SetActiveFilter changes the view that Filtered and Reorder are scoped to.
func (e *Engine) SetActiveFilter(f Filter) error {
	if f != FilterAll && !models.JobStatus(f).Valid() {
		return &ValidationError{Field: "filter", Reason: fmt.Sprintf("unknown status %q", f)}
	}
	e.mu.Lock()
	e.filter = f
	e.mu.Unlock()
	return nil
}

// CountByStatus returns how many jobs have status s.
func (e *Engine) CountByStatus(s models.JobStatus) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, j := range e.jobs {
		if j.Status == s {
			n++
		}
	}
	return n
}

// Counts returns per-status counts; every known status is present.
func (e *Engine) Counts() map[models.JobStatus]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[models.JobStatus]int, len(models.Statuses))
	for _, s := range models.Statuses {
		out[s] = 0
	}
	for _, j := range e.jobs {
		out[j.Status]++
	}
	return out
}

func (e *Engine) setJobs(jobs []models.Job) {
	e.mu.Lock()
	e.jobs = jobs
	e.mu.Unlock()
}

func (e *Engine) requireOnline() error {
	if !e.Online() {
		return ErrOffline
	}
	return nil
}

// normalize guarantees a non-nil comment list ordered newest first.
func normalize(j *models.Job) {
	if j.Comments == nil {
		j.Comments = []models.Comment{}
	}
	sortComments(j.Comments)
}

func sortComments(cs []models.Comment) {
	slices.SortStableFunc(cs, func(a, b models.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func indexOf(jobs []models.Job, id string) int {
	return slices.IndexFunc(jobs, func(j models.Job) bool { return j.ID == id })
}

func cloneAll(jobs []models.Job, f Filter) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if f.Matches(j) {
			out = append(out, j.Clone())
		}
	}
	return out
}

// withJob returns a copy of jobs with position i replaced. Canonical slices are
// never written in place so that rollback records stay intact.
func withJob(jobs []models.Job, i int, j models.Job) []models.Job {
	out := slices.Clone(jobs)
	out[i] = j
	return out
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return v, nil
}
