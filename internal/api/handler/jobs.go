package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/jobtracker/internal/api/response"
	"github.com/kiranshivaraju/jobtracker/internal/store"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

const statusMessage = "status must be one of wishlist, in_progress, archived"

// NewListJobsHandler returns an http.HandlerFunc for GET /jobs.
func NewListJobsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		jobs, err := s.ListJobs(r.Context(), uid)
		if err != nil {
			storeError(w, r, err, "Jobs")
			return
		}
		response.JSON(w, jobs)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /jobs/{id}.
func NewGetJobHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		job, err := s.GetJob(r.Context(), chi.URLParam(r, "id"), uid)
		if err != nil {
			storeError(w, r, err, "Job")
			return
		}
		response.JSON(w, job)
	}
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /jobs. Company and
// position are trimmed and required; status defaults to wishlist.
func NewCreateJobHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		var in models.CreateJobInput
		if !decode(w, r, &in) {
			return
		}

		in.Company = strings.TrimSpace(in.Company)
		in.Position = strings.TrimSpace(in.Position)
		if in.Company == "" {
			invalid(w, "company is required")
			return
		}
		if in.Position == "" {
			invalid(w, "position is required")
			return
		}
		if in.Status == "" {
			in.Status = models.StatusWishlist
		}
		if !in.Status.Valid() {
			invalid(w, statusMessage)
			return
		}
		if in.SalaryExpectations != nil && strings.TrimSpace(*in.SalaryExpectations) == "" {
			in.SalaryExpectations = nil
		}

		job, err := s.CreateJob(r.Context(), uid, in)
		if err != nil {
			storeError(w, r, err, "Job")
			return
		}
		response.Created(w, job)
	}
}

// NewUpdateJobHandler returns an http.HandlerFunc for PUT /jobs/{id}. Only
// the fields present in the body change; salary_expectations: null clears it.
func NewUpdateJobHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		var patch models.JobPatch
		if !decode(w, r, &patch) {
			return
		}
		if msg := checkPatch(&patch); msg != "" {
			invalid(w, msg)
			return
		}

		job, err := s.UpdateJob(r.Context(), chi.URLParam(r, "id"), uid, patch)
		if err != nil {
			storeError(w, r, err, "Job")
			return
		}
		response.JSON(w, job)
	}
}

// checkPatch trims the patch in place and returns a validation message, or
// "" when the patch is acceptable.
func checkPatch(p *models.JobPatch) string {
	if p.Empty() {
		return "no fields to update"
	}
	if p.Company != nil {
		v := strings.TrimSpace(*p.Company)
		if v == "" {
			return "company cannot be empty"
		}
		p.Company = &v
	}
	if p.Position != nil {
		v := strings.TrimSpace(*p.Position)
		if v == "" {
			return "position cannot be empty"
		}
		p.Position = &v
	}
	if p.Status != nil && !p.Status.Valid() {
		return statusMessage
	}
	if p.SalaryExpectations != nil && strings.TrimSpace(*p.SalaryExpectations) == "" {
		p.SalaryExpectations = nil
		p.ClearSalary = true
	}
	return ""
}

// NewDeleteJobHandler returns an http.HandlerFunc for DELETE /jobs/{id}.
// The job's comments go with it.
func NewDeleteJobHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		if err := s.DeleteJob(r.Context(), chi.URLParam(r, "id"), uid); err != nil {
			storeError(w, r, err, "Job")
			return
		}
		response.Message(w, "Job deleted")
	}
}

// NewReorderJobsHandler returns an http.HandlerFunc for PUT /jobs/reorder.
// The whole batch applies atomically or not at all.
func NewReorderJobsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		var req models.ReorderRequest
		if !decode(w, r, &req) {
			return
		}
		if len(req.Orders) == 0 {
			invalid(w, "orders must not be empty")
			return
		}

		if err := s.ReorderJobs(r.Context(), uid, req.Orders); err != nil {
			storeError(w, r, err, "Job")
			return
		}
		response.JSON(w, models.SuccessResponse{Success: true})
	}
}
