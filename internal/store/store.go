package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInvalidReorder is returned when a reorder request has no usable entries.
var ErrInvalidReorder = errors.New("invalid reorder request")

// ErrForbidden is returned when a reorder names a job the caller does not own.
var ErrForbidden = errors.New("job not owned by caller")

// Store is the data access interface. All database operations go through here.
// Every job and comment operation is scoped to the owning user.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context) (*models.User, error)
	CreateSession(ctx context.Context, sess *models.SessionRecord) error
	GetSessionsByTokenPrefix(ctx context.Context, prefix string) ([]*models.SessionRecord, error)
	GetSessionsByRefreshPrefix(ctx context.Context, prefix string) ([]*models.SessionRecord, error)
	RevokeSession(ctx context.Context, id string) error

	ListJobs(ctx context.Context, userID string) ([]models.Job, error)
	GetJob(ctx context.Context, id, userID string) (*models.Job, error)
	CreateJob(ctx context.Context, userID string, in models.CreateJobInput) (*models.Job, error)
	UpdateJob(ctx context.Context, id, userID string, patch models.JobPatch) (*models.Job, error)
	DeleteJob(ctx context.Context, id, userID string) error
	ReorderJobs(ctx context.Context, userID string, orders []models.ReorderEntry) error

	CreateComment(ctx context.Context, jobID, userID, content string) (*models.Comment, error)
	UpdateComment(ctx context.Context, id, userID, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id, userID string) error
}
