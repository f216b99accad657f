package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// Create sends in to the server and appends the confirmed job. Nothing is
// inserted locally before the server assigns identity and sort order.
func (e *Engine) Create(ctx context.Context, in models.CreateJobInput) (models.Job, error) {
	var err error
	if in.Company, err = requireText("company", in.Company); err != nil {
		return models.Job{}, err
	}
	if in.Position, err = requireText("position", in.Position); err != nil {
		return models.Job{}, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return models.Job{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", in.Status)}
	}
	if in.SortOrder != nil && *in.SortOrder < 0 {
		return models.Job{}, &ValidationError{Field: "sort_order", Reason: "must not be negative"}
	}
	if err := e.requireOnline(); err != nil {
		return models.Job{}, err
	}

	created, err := e.client.CreateJob(ctx, in)
	if err != nil {
		return models.Job{}, err
	}
	job := *created
	normalize(&job)

	e.mu.Lock()
	e.jobs = append(slices.Clip(e.jobs), job)
	e.mu.Unlock()

	return job.Clone(), nil
}

// Update applies patch locally, sends it, and then either adopts the server's
// version of the job or restores the original.
func (e *Engine) Update(ctx context.Context, id string, patch models.JobPatch) (models.Job, error) {
	if err := validatePatch(&patch); err != nil {
		return models.Job{}, err
	}
	if err := e.requireOnline(); err != nil {
		return models.Job{}, err
	}

	e.mu.Lock()
	i := indexOf(e.jobs, id)
	if i < 0 {
		e.mu.Unlock()
		return models.Job{}, fmt.Errorf("update %s: %w", id, ErrJobNotFound)
	}
	original := e.jobs[i]
	optimistic := original.Clone()
	patch.Apply(&optimistic)
	optimistic.UpdatedAt = e.now()
	e.jobs = withJob(e.jobs, i, optimistic)
	e.mu.Unlock()

	confirmed, err := e.client.UpdateJob(ctx, id, patch)
	if err != nil {
		e.mu.Lock()
		if k := indexOf(e.jobs, id); k >= 0 {
			e.jobs = withJob(e.jobs, k, original)
		}
		e.mu.Unlock()
		slog.Warn("update rolled back", "job_id", id, "error", err)
		return models.Job{}, err
	}

	job := *confirmed
	normalize(&job)
	e.mu.Lock()
	if k := indexOf(e.jobs, id); k >= 0 {
		e.jobs = withJob(e.jobs, k, job)
	}
	e.mu.Unlock()
	return job.Clone(), nil
}

// Delete removes the job locally before the server confirms and puts it back
// at its original position if the server refuses.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.requireOnline(); err != nil {
		return err
	}

	e.mu.Lock()
	i := indexOf(e.jobs, id)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrJobNotFound)
	}
	removed := e.jobs[i]
	e.jobs = slices.Delete(slices.Clone(e.jobs), i, i+1)
	e.mu.Unlock()

	if err := e.client.DeleteJob(ctx, id); err != nil {
		e.mu.Lock()
		at := min(i, len(e.jobs))
		e.jobs = slices.Insert(slices.Clone(e.jobs), at, removed)
		e.mu.Unlock()
		slog.Warn("delete rolled back", "job_id", id, "error", err)
		return err
	}
	return nil
}

// Refresh fetches one job and replaces it in place. A job not yet known
// locally is appended.
func (e *Engine) Refresh(ctx context.Context, id string) (models.Job, error) {
	if err := e.requireOnline(); err != nil {
		return models.Job{}, err
	}
	fetched, err := e.client.GetJob(ctx, id)
	if err != nil {
		return models.Job{}, err
	}
	job := *fetched
	normalize(&job)

	e.mu.Lock()
	if i := indexOf(e.jobs, id); i >= 0 {
		e.jobs = withJob(e.jobs, i, job)
	} else {
		e.jobs = append(slices.Clip(e.jobs), job)
	}
	e.mu.Unlock()
	return job.Clone(), nil
}

func validatePatch(p *models.JobPatch) error {
	if p.Empty() {
		return &ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if p.Company != nil {
		v, err := requireText("company", *p.Company)
		if err != nil {
			return err
		}
		p.Company = &v
	}
	if p.Position != nil {
		v, err := requireText("position", *p.Position)
		if err != nil {
			return err
		}
		p.Position = &v
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *p.Status)}
	}
	if p.SalaryExpectations != nil && strings.TrimSpace(*p.SalaryExpectations) == "" {
		p.SalaryExpectations = nil
		p.ClearSalary = true
	}
	return nil
}
