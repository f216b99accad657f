// Package remote is the HTTP client for the tracker REST API.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// DefaultTimeout bounds every call unless overridden.
const DefaultTimeout = 10 * time.Second

// Client is the interface for the tracker's job and comment endpoints.
type Client interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	CreateJob(ctx context.Context, in models.CreateJobInput) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, patch models.JobPatch) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	ReorderJobs(ctx context.Context, orders []models.ReorderEntry) error
	AddComment(ctx context.Context, jobID, content string) (*models.Comment, error)
	UpdateComment(ctx context.Context, commentID, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	Health(ctx context.Context) error
}

// TokenProvider supplies bearer tokens. Token may return an empty string when
// no session exists; Refresh must return a new token or an error.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// HTTPClient implements Client over the tracker's JSON API.
type HTTPClient struct {
	baseURL    string
	tokens     TokenProvider
	onAuthLost func(error)
	client     *http.Client
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithTokenProvider attaches bearer tokens to every call.
func WithTokenProvider(p TokenProvider) Option {
	return func(c *HTTPClient) { c.tokens = p }
}

// WithAuthLostHandler registers fn to be called when a token refresh fails.
func WithAuthLostHandler(fn func(error)) Option {
	return func(c *HTTPClient) { c.onAuthLost = fn }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// NewHTTPClient creates a new API client. A non-positive timeout selects DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.do(ctx, "list jobs", http.MethodGet, "/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	for i := range jobs {
		if err := validateJob(&jobs[i]); err != nil {
			return nil, &ProtocolError{Op: "list jobs", Err: err}
		}
	}
	if jobs == nil {
		return []models.Job{}, nil
	}
	return jobs, nil
}

func (c *HTTPClient) GetJob(ctx context.Context, id string) (*models.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("get job: %w", ErrEmptyID)
	}
	return c.jobCall(ctx, "get job", http.MethodGet, "/jobs/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) CreateJob(ctx context.Context, in models.CreateJobInput) (*models.Job, error) {
	return c.jobCall(ctx, "create job", http.MethodPost, "/jobs", in)
}

func (c *HTTPClient) UpdateJob(ctx context.Context, id string, patch models.JobPatch) (*models.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("update job: %w", ErrEmptyID)
	}
	return c.jobCall(ctx, "update job", http.MethodPut, "/jobs/"+url.PathEscape(id), patch)
}

func (c *HTTPClient) DeleteJob(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete job: %w", ErrEmptyID)
	}
	var resp models.MessageResponse
	return c.do(ctx, "delete job", http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, &resp)
}

func (c *HTTPClient) ReorderJobs(ctx context.Context, orders []models.ReorderEntry) error {
	var resp models.SuccessResponse
	if err := c.do(ctx, "reorder jobs", http.MethodPut, "/jobs/reorder", models.ReorderRequest{Orders: orders}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &ProtocolError{Op: "reorder jobs", Err: errors.New("success flag not set")}
	}
	return nil
}

func (c *HTTPClient) AddComment(ctx context.Context, jobID, content string) (*models.Comment, error) {
	if jobID == "" {
		return nil, fmt.Errorf("add comment: %w", ErrEmptyID)
	}
	return c.commentCall(ctx, "add comment", http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/comments", content)
}

func (c *HTTPClient) UpdateComment(ctx context.Context, commentID, content string) (*models.Comment, error) {
	if commentID == "" {
		return nil, fmt.Errorf("update comment: %w", ErrEmptyID)
	}
	return c.commentCall(ctx, "update comment", http.MethodPut, "/comments/"+url.PathEscape(commentID), content)
}

func (c *HTTPClient) DeleteComment(ctx context.Context, commentID string) error {
	if commentID == "" {
		return fmt.Errorf("delete comment: %w", ErrEmptyID)
	}
	var resp models.MessageResponse
	return c.do(ctx, "delete comment", http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, &resp)
}

// Health probes GET /health without credentials.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError("health", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &RemoteError{Status: resp.StatusCode}
	}
	return nil
}

func (c *HTTPClient) jobCall(ctx context.Context, op, method, path string, body any) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, op, method, path, body, &job); err != nil {
		return nil, err
	}
	if err := validateJob(&job); err != nil {
		return nil, &ProtocolError{Op: op, Err: err}
	}
	return &job, nil
}

func (c *HTTPClient) commentCall(ctx context.Context, op, method, path, content string) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, op, method, path, models.CommentInput{Content: content}, &comment); err != nil {
		return nil, err
	}
	if comment.ID == "" {
		return nil, &ProtocolError{Op: op, Err: errors.New("comment id missing")}
	}
	return &comment, nil
}

// do performs one logical request. A 401 triggers a single token refresh and
// a single retry; the retried request is never retried again.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		payload = b
	}

	resp, err := c.send(ctx, op, method, path, payload, c.currentToken(ctx))
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		first := readRemoteError(resp)

		token, refreshErr := c.tokens.Refresh(ctx)
		if refreshErr == nil && token == "" {
			refreshErr = errors.New("refresh returned an empty token")
		}
		if refreshErr != nil {
			slog.Warn("token refresh failed", "op", op, "error", refreshErr)
			if c.onAuthLost != nil {
				c.onAuthLost(refreshErr)
			}
			return errors.Join(ErrAuthLost, first)
		}

		resp, err = c.send(ctx, op, method, path, payload, token)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readRemoteError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyError(op, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProtocolError{Op: op, Err: err}
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, op, method, path string, payload []byte, token string) (*http.Response, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(op, err)
	}
	return resp, nil
}

// currentToken returns the provider's token, or "" when none is available.
// The server is the authority on authorization, so a missing token is not an error here.
func (c *HTTPClient) currentToken(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		slog.Debug("no bearer token available", "error", err)
		return ""
	}
	return token
}

// readRemoteError consumes and closes resp.Body.
func readRemoteError(resp *http.Response) *RemoteError {
	defer resp.Body.Close()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := ""
	if json.Unmarshal(raw, &body) == nil {
		msg = body.Error
		if msg == "" {
			msg = body.Message
		}
	}
	return &RemoteError{Status: resp.StatusCode, Message: msg}
}

// classifyError maps transport-level errors to NetworkError.
func classifyError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Op: op, Timeout: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &NetworkError{Op: op, Timeout: true, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}

func validateJob(j *models.Job) error {
	if j.ID == "" {
		return errors.New("job id missing")
	}
	if j.Status != "" && !j.Status.Valid() {
		return fmt.Errorf("job %s: unknown status %q", j.ID, j.Status)
	}
	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
