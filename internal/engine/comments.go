package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// Comment operations wait for the server before touching local state.

func (e *Engine) AddComment(ctx context.Context, jobID, content string) (models.Comment, error) {
	content, err := requireText("content", content)
	if err != nil {
		return models.Comment{}, err
	}
	if err := e.requireOnline(); err != nil {
		return models.Comment{}, err
	}
	if _, ok := e.Job(jobID); !ok {
		return models.Comment{}, fmt.Errorf("add comment to %s: %w", jobID, ErrJobNotFound)
	}

	created, err := e.client.AddComment(ctx, jobID, content)
	if err != nil {
		return models.Comment{}, err
	}
	c := *created
	if c.JobID == "" {
		c.JobID = jobID
	}

	e.mergeComments(jobID, confirmedAt(c, e.now), func(cs []models.Comment) []models.Comment {
		cs = append(cs, c)
		sortComments(cs)
		return cs
	})
	return c, nil
}

func (e *Engine) UpdateComment(ctx context.Context, jobID, commentID, content string) (models.Comment, error) {
	content, err := requireText("content", content)
	if err != nil {
		return models.Comment{}, err
	}
	if err := e.requireOnline(); err != nil {
		return models.Comment{}, err
	}
	if err := e.findComment(jobID, commentID); err != nil {
		return models.Comment{}, fmt.Errorf("update comment %s: %w", commentID, err)
	}

	updated, err := e.client.UpdateComment(ctx, commentID, content)
	if err != nil {
		return models.Comment{}, err
	}
	c := *updated
	if c.JobID == "" {
		c.JobID = jobID
	}

	e.mergeComments(jobID, confirmedAt(c, e.now), func(cs []models.Comment) []models.Comment {
		if i := slices.IndexFunc(cs, func(x models.Comment) bool { return x.ID == commentID }); i >= 0 {
			cs[i] = c
		}
		return cs
	})
	return c, nil
}

// DeleteComment stamps the parent job with the local time since the server
// returns no timestamp for a removal.
func (e *Engine) DeleteComment(ctx context.Context, jobID, commentID string) error {
	if err := e.requireOnline(); err != nil {
		return err
	}
	if err := e.findComment(jobID, commentID); err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}

	if err := e.client.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	e.mergeComments(jobID, e.now(), func(cs []models.Comment) []models.Comment {
		return slices.DeleteFunc(cs, func(x models.Comment) bool { return x.ID == commentID })
	})
	return nil
}

func (e *Engine) findComment(jobID, commentID string) error {
	job, ok := e.Job(jobID)
	if !ok {
		return ErrJobNotFound
	}
	if !slices.ContainsFunc(job.Comments, func(c models.Comment) bool { return c.ID == commentID }) {
		return ErrCommentNotFound
	}
	return nil
}

// mergeComments rewrites the comment list of jobID on a copy of the job. The
// job may have been deleted while the call was in flight; then nothing changes.
func (e *Engine) mergeComments(jobID string, updatedAt time.Time, fn func([]models.Comment) []models.Comment) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexOf(e.jobs, jobID)
	if i < 0 {
		return
	}
	job := e.jobs[i].Clone()
	job.Comments = fn(job.Comments)
	if job.Comments == nil {
		job.Comments = []models.Comment{}
	}
	job.UpdatedAt = updatedAt
	e.jobs = withJob(e.jobs, i, job)
}

func confirmedAt(c models.Comment, now func() time.Time) time.Time {
	switch {
	case !c.UpdatedAt.IsZero():
		return c.UpdatedAt
	case !c.CreatedAt.IsZero():
		return c.CreatedAt
	}
	return now()
}
