// Package mock provides a configurable fake of remote.Client for tests.
package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/jobtracker/internal/remote"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// Client satisfies remote.Client. Each call is recorded by name; unset Func
// fields return zero values.
type Client struct {
	ListJobsFunc      func(ctx context.Context) ([]models.Job, error)
	GetJobFunc        func(ctx context.Context, id string) (*models.Job, error)
	CreateJobFunc     func(ctx context.Context, in models.CreateJobInput) (*models.Job, error)
	UpdateJobFunc     func(ctx context.Context, id string, patch models.JobPatch) (*models.Job, error)
	DeleteJobFunc     func(ctx context.Context, id string) error
	ReorderJobsFunc   func(ctx context.Context, orders []models.ReorderEntry) error
	AddCommentFunc    func(ctx context.Context, jobID, content string) (*models.Comment, error)
	UpdateCommentFunc func(ctx context.Context, commentID, content string) (*models.Comment, error)
	DeleteCommentFunc func(ctx context.Context, commentID string) error
	HealthFunc        func(ctx context.Context) error

	mu    sync.Mutex
	calls []string
}

func (c *Client) record(name string) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
}

// Calls returns the names of the methods invoked so far, in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (c *Client) CallCount(name string) int {
	n := 0
	for _, call := range c.Calls() {
		if call == name {
			n++
		}
	}
	return n
}

func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	c.record("ListJobs")
	if c.ListJobsFunc != nil {
		return c.ListJobsFunc(ctx)
	}
	return []models.Job{}, nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	c.record("GetJob")
	if c.GetJobFunc != nil {
		return c.GetJobFunc(ctx, id)
	}
	return &models.Job{ID: id}, nil
}

func (c *Client) CreateJob(ctx context.Context, in models.CreateJobInput) (*models.Job, error) {
	c.record("CreateJob")
	if c.CreateJobFunc != nil {
		return c.CreateJobFunc(ctx, in)
	}
	return &models.Job{ID: "new", Company: in.Company, Position: in.Position, Status: in.Status}, nil
}

func (c *Client) UpdateJob(ctx context.Context, id string, patch models.JobPatch) (*models.Job, error) {
	c.record("UpdateJob")
	if c.UpdateJobFunc != nil {
		return c.UpdateJobFunc(ctx, id, patch)
	}
	j := models.Job{ID: id}
	patch.Apply(&j)
	return &j, nil
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	c.record("DeleteJob")
	if c.DeleteJobFunc != nil {
		return c.DeleteJobFunc(ctx, id)
	}
	return nil
}

func (c *Client) ReorderJobs(ctx context.Context, orders []models.ReorderEntry) error {
	c.record("ReorderJobs")
	if c.ReorderJobsFunc != nil {
		return c.ReorderJobsFunc(ctx, orders)
	}
	return nil
}

func (c *Client) AddComment(ctx context.Context, jobID, content string) (*models.Comment, error) {
	c.record("AddComment")
	if c.AddCommentFunc != nil {
		return c.AddCommentFunc(ctx, jobID, content)
	}
	return &models.Comment{ID: "c-new", JobID: jobID, Content: content}, nil
}

func (c *Client) UpdateComment(ctx context.Context, commentID, content string) (*models.Comment, error) {
	c.record("UpdateComment")
	if c.UpdateCommentFunc != nil {
		return c.UpdateCommentFunc(ctx, commentID, content)
	}
	return &models.Comment{ID: commentID, Content: content}, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	c.record("DeleteComment")
	if c.DeleteCommentFunc != nil {
		return c.DeleteCommentFunc(ctx, commentID)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	c.record("Health")
	if c.HealthFunc != nil {
		return c.HealthFunc(ctx)
	}
	return nil
}

var _ remote.Client = (*Client)(nil)
