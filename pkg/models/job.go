// Package models contains the records shared by the tracker backend and its clients.
package models

import (
	"fmt"
	"time"
)

// JobStatus is the pipeline stage of a tracked application.
type JobStatus string

const (
	StatusWishlist   JobStatus = "wishlist"
	StatusInProgress JobStatus = "in_progress"
	StatusArchived   JobStatus = "archived"
)

// Statuses lists every status in display order.
var Statuses = []JobStatus{StatusWishlist, StatusInProgress, StatusArchived}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusWishlist, StatusInProgress, StatusArchived:
		return true
	}
	return false
}

// ParseJobStatus validates a raw status string.
func ParseJobStatus(raw string) (JobStatus, error) {
	s := JobStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid job status %q: must be one of wishlist, in_progress, archived", raw)
	}
	return s, nil
}

// Job is one tracked application. ID, Owner and the timestamps are assigned
// by the server; Comments is never nil once a job has passed through the
// client normalization step.
type Job struct {
	ID                 string    `db:"id"                  json:"id"`
	Owner              string    `db:"user_id"             json:"user_id"`
	Company            string    `db:"company"             json:"company"`
	Position           string    `db:"position"            json:"position"`
	Status             JobStatus `db:"status"              json:"status"`
	SortOrder          int       `db:"sort_order"          json:"sort_order"`
	SalaryExpectations *string   `db:"salary_expectations" json:"salary_expectations"`
	CreatedAt          time.Time `db:"created_at"          json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"          json:"updated_at"`
	Comments           []Comment `db:"-"                   json:"comments"`
}

// Clone returns a deep copy of j.
func (j Job) Clone() Job {
	out := j
	if j.SalaryExpectations != nil {
		v := *j.SalaryExpectations
		out.SalaryExpectations = &v
	}
	if j.Comments != nil {
		out.Comments = make([]Comment, len(j.Comments))
		copy(out.Comments, j.Comments)
	}
	return out
}

// Comment is a free-text progress note attached to a job.
type Comment struct {
	ID        string    `db:"id"         json:"id"`
	JobID     string    `db:"job_id"     json:"job_id"`
	Content   string    `db:"content"    json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateJobInput is the body of POST /jobs.
type CreateJobInput struct {
	Company            string    `json:"company"`
	Position           string    `json:"position"`
	Status             JobStatus `json:"status,omitempty"`
	SalaryExpectations *string   `json:"salary_expectations,omitempty"`
	SortOrder          *int      `json:"sort_order,omitempty"`
}

// CommentInput is the body of comment create and update calls.
type CommentInput struct {
	Content string `json:"content"`
}

// ReorderEntry assigns a final position (and optionally a new status) to one job.
type ReorderEntry struct {
	ID        string     `json:"id"`
	SortOrder int        `json:"sort_order"`
	Status    *JobStatus `json:"status,omitempty"`
}

// ReorderRequest is the body of PUT /jobs/reorder.
type ReorderRequest struct {
	Orders []ReorderEntry `json:"orders"`
}

// MessageResponse is returned by delete endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// SuccessResponse is returned by the reorder endpoint.
type SuccessResponse struct {
	Success bool `json:"success"`
}
