package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// Reorder takes the jobs of the active view in their new order and splices
// them back into the full collection. Jobs outside the view keep their slots;
// jobs inside it fill the slots the view occupied, in the given order. Every
// job then gets a 0-based sort_order matching its position.
//
// A job in ordered whose status differs from the canonical one is treated as
// dragged across statuses: the new status is applied locally and sent in the
// same call. An empty status keeps the canonical one.
func (e *Engine) Reorder(ctx context.Context, ordered []models.Job) error {
	if len(ordered) == 0 {
		return &ValidationError{Field: "orders", Reason: "must not be empty"}
	}
	if err := e.requireOnline(); err != nil {
		return err
	}

	e.mu.Lock()
	previous := e.jobs
	next, err := splice(previous, ordered, e.filter)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if sameOrder(previous, next) {
		e.mu.Unlock()
		slog.Debug("reorder is a no-op, skipping remote call")
		return nil
	}
	entries := reorderEntries(previous, next)
	e.jobs = next
	e.mu.Unlock()

	if err := e.client.ReorderJobs(ctx, entries); err != nil {
		e.mu.Lock()
		e.jobs = previous
		e.mu.Unlock()
		slog.Warn("reorder rolled back", "jobs", len(entries), "error", err)
		return err
	}
	return nil
}

// splice builds the reordered full collection. Canonical field values win over
// the caller's copies except for status.
func splice(jobs, ordered []models.Job, f Filter) ([]models.Job, error) {
	inScope := make(map[string]bool, len(ordered))
	for _, j := range ordered {
		if inScope[j.ID] {
			return nil, &ValidationError{Field: "orders", Reason: fmt.Sprintf("job %s listed twice", j.ID)}
		}
		if indexOf(jobs, j.ID) < 0 {
			return nil, fmt.Errorf("reorder %s: %w", j.ID, ErrJobNotFound)
		}
		if j.Status != "" && !j.Status.Valid() {
			return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q for job %s", j.Status, j.ID)}
		}
		inScope[j.ID] = true
	}
	for _, j := range jobs {
		if f.Matches(j) && !inScope[j.ID] {
			return nil, &ValidationError{Field: "orders", Reason: fmt.Sprintf("job %s is in view %q but missing from the new order", j.ID, f)}
		}
	}

	next := slices.Clone(jobs)
	k := 0
	for i, j := range jobs {
		if !inScope[j.ID] {
			continue
		}
		want := ordered[k]
		k++
		placed := jobs[indexOf(jobs, want.ID)]
		if want.Status != "" && placed.Status != want.Status {
			placed = placed.Clone()
			placed.Status = want.Status
		}
		next[i] = placed
	}
	for i := range next {
		if next[i].SortOrder != i {
			next[i] = next[i].Clone()
			next[i].SortOrder = i
		}
	}
	return next, nil
}

// sameOrder reports whether next would change nothing visible: same id
// sequence and no status moves.
func sameOrder(prev, next []models.Job) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if prev[i].ID != next[i].ID || prev[i].Status != next[i].Status {
			return false
		}
	}
	return true
}

func reorderEntries(prev, next []models.Job) []models.ReorderEntry {
	before := make(map[string]models.JobStatus, len(prev))
	for _, j := range prev {
		before[j.ID] = j.Status
	}
	entries := make([]models.ReorderEntry, len(next))
	for i, j := range next {
		entries[i] = models.ReorderEntry{ID: j.ID, SortOrder: i}
		if before[j.ID] != j.Status {
			s := j.Status
			entries[i].Status = &s
		}
	}
	return entries
}
