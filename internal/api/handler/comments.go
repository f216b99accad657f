package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/jobtracker/internal/api/response"
	"github.com/kiranshivaraju/jobtracker/internal/store"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

func commentContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var in models.CommentInput
	if !decode(w, r, &in) {
		return "", false
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		invalid(w, "content is required")
		return "", false
	}
	return content, true
}

// NewCreateCommentHandler returns an http.HandlerFunc for POST /jobs/{id}/comments.
func NewCreateCommentHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		content, ok := commentContent(w, r)
		if !ok {
			return
		}
		c, err := s.CreateComment(r.Context(), chi.URLParam(r, "id"), uid, content)
		if err != nil {
			storeError(w, r, err, "Job")
			return
		}
		response.Created(w, c)
	}
}

// NewUpdateCommentHandler returns an http.HandlerFunc for PUT /comments/{id}.
func NewUpdateCommentHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		content, ok := commentContent(w, r)
		if !ok {
			return
		}
		c, err := s.UpdateComment(r.Context(), chi.URLParam(r, "id"), uid, content)
		if err != nil {
			storeError(w, r, err, "Comment")
			return
		}
		response.JSON(w, c)
	}
}

// NewDeleteCommentHandler returns an http.HandlerFunc for DELETE /comments/{id}.
func NewDeleteCommentHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		if err := s.DeleteComment(r.Context(), chi.URLParam(r, "id"), uid); err != nil {
			storeError(w, r, err, "Comment")
			return
		}
		response.Message(w, "Comment deleted")
	}
}
