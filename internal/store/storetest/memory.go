// Package storetest provides an in-memory store.Store for handler and
// end-to-end tests.
package storetest

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobtracker/internal/store"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

type comment struct {
	models.Comment
	userID string
	seq    int
}

// Memory mirrors PostgresStore semantics closely enough for the API layer:
// ownership scoping, default status and sort order, unique sort orders per
// user, and newest-first comments.
type Memory struct {
	mu       sync.Mutex
	users    map[string]models.User
	sessions map[string]*models.SessionRecord
	jobs     map[string]*models.Job
	comments map[string]*comment
	seq      int

	// Fail, when set, is consulted before every operation; a non-nil
	// result is returned instead of running it.
	Fail func(op string) error

	// Now defaults to time.Now.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:    map[string]models.User{},
		sessions: map[string]*models.SessionRecord{},
		jobs:     map[string]*models.Job{},
		comments: map[string]*comment{},
	}
}

func (m *Memory) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op)
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Memory) Ping(context.Context) error { return m.fail("Ping") }

func (m *Memory) CreateUser(context.Context) (*models.User, error) {
	if err := m.fail("CreateUser"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: uuid.NewString(), CreatedAt: m.now()}
	m.users[u.ID] = u
	return &u, nil
}

func (m *Memory) CreateSession(_ context.Context, sess *models.SessionRecord) error {
	if err := m.fail("CreateSession"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if _, ok := m.sessions[sess.ID]; ok {
		return store.ErrDuplicateKey
	}
	sess.CreatedAt = m.now()
	cp := *sess
	m.sessions[sess.ID] = &cp
	return nil
}

func (m *Memory) GetSessionsByTokenPrefix(_ context.Context, prefix string) ([]*models.SessionRecord, error) {
	if err := m.fail("GetSessionsByTokenPrefix"); err != nil {
		return nil, err
	}
	return m.sessionsWhere(func(s *models.SessionRecord) bool { return s.TokenPrefix == prefix }), nil
}

func (m *Memory) GetSessionsByRefreshPrefix(_ context.Context, prefix string) ([]*models.SessionRecord, error) {
	if err := m.fail("GetSessionsByRefreshPrefix"); err != nil {
		return nil, err
	}
	return m.sessionsWhere(func(s *models.SessionRecord) bool { return s.RefreshPrefix == prefix }), nil
}

func (m *Memory) sessionsWhere(match func(*models.SessionRecord) bool) []*models.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SessionRecord
	for _, s := range m.sessions {
		if s.RevokedAt == nil && match(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

func (m *Memory) RevokeSession(_ context.Context, id string) error {
	if err := m.fail("RevokeSession"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return store.ErrNotFound
	}
	now := m.now()
	s.RevokedAt = &now
	return nil
}

func (m *Memory) ListJobs(_ context.Context, userID string) ([]models.Job, error) {
	if err := m.fail("ListJobs"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := []models.Job{}
	for _, j := range m.jobs {
		if j.Owner == userID {
			jobs = append(jobs, m.withComments(j))
		}
	}
	slices.SortFunc(jobs, func(a, b models.Job) int { return cmp.Compare(a.SortOrder, b.SortOrder) })
	return jobs, nil
}

func (m *Memory) GetJob(_ context.Context, id, userID string) (*models.Job, error) {
	if err := m.fail("GetJob"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Owner != userID {
		return nil, store.ErrNotFound
	}
	out := m.withComments(j)
	return &out, nil
}

func (m *Memory) CreateJob(_ context.Context, userID string, in models.CreateJobInput) (*models.Job, error) {
	if err := m.fail("CreateJob"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	status := in.Status
	if status == "" {
		status = models.StatusWishlist
	}
	sortOrder := 0
	if in.SortOrder != nil && *in.SortOrder >= 0 {
		sortOrder = *in.SortOrder
	} else {
		for _, j := range m.jobs {
			if j.Owner == userID && j.SortOrder >= sortOrder {
				sortOrder = j.SortOrder + 1
			}
		}
	}
	for _, j := range m.jobs {
		if j.Owner == userID && j.SortOrder == sortOrder {
			return nil, store.ErrDuplicateKey
		}
	}

	now := m.now()
	j := &models.Job{
		ID:                 uuid.NewString(),
		Owner:              userID,
		Company:            in.Company,
		Position:           in.Position,
		Status:             status,
		SortOrder:          sortOrder,
		SalaryExpectations: in.SalaryExpectations,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.jobs[j.ID] = j
	out := m.withComments(j)
	return &out, nil
}

func (m *Memory) UpdateJob(_ context.Context, id, userID string, patch models.JobPatch) (*models.Job, error) {
	if err := m.fail("UpdateJob"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Owner != userID {
		return nil, store.ErrNotFound
	}
	patch.Apply(j)
	j.UpdatedAt = m.now()
	out := m.withComments(j)
	return &out, nil
}

func (m *Memory) DeleteJob(_ context.Context, id, userID string) error {
	if err := m.fail("DeleteJob"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Owner != userID {
		return store.ErrNotFound
	}
	delete(m.jobs, id)
	for cid, c := range m.comments {
		if c.JobID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *Memory) ReorderJobs(_ context.Context, userID string, orders []models.ReorderEntry) error {
	if err := m.fail("ReorderJobs"); err != nil {
		return err
	}
	steps, err := store.PlanReorder(orders)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	final := make(map[string]int, len(m.jobs))
	for _, j := range m.jobs {
		if j.Owner == userID {
			final[j.ID] = j.SortOrder
		}
	}
	for _, st := range steps {
		id := st.ID.String()
		if _, ok := final[id]; !ok {
			return store.ErrForbidden
		}
		final[id] = st.SortOrder
	}
	seen := make(map[int]bool, len(final))
	for _, so := range final {
		if seen[so] {
			return store.ErrDuplicateKey
		}
		seen[so] = true
	}

	now := m.now()
	for _, st := range steps {
		j := m.jobs[st.ID.String()]
		j.SortOrder = st.SortOrder
		if st.Status != nil {
			j.Status = *st.Status
		}
		j.UpdatedAt = now
	}
	return nil
}

func (m *Memory) CreateComment(_ context.Context, jobID, userID, content string) (*models.Comment, error) {
	if err := m.fail("CreateComment"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.Owner != userID {
		return nil, store.ErrNotFound
	}
	now := m.now()
	m.seq++
	c := &comment{
		Comment: models.Comment{ID: uuid.NewString(), JobID: jobID, Content: content, CreatedAt: now, UpdatedAt: now},
		userID:  userID,
		seq:     m.seq,
	}
	m.comments[c.ID] = c
	j.UpdatedAt = now
	out := c.Comment
	return &out, nil
}

func (m *Memory) UpdateComment(_ context.Context, id, userID, content string) (*models.Comment, error) {
	if err := m.fail("UpdateComment"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok || c.userID != userID {
		return nil, store.ErrNotFound
	}
	now := m.now()
	c.Content = content
	c.UpdatedAt = now
	if j, ok := m.jobs[c.JobID]; ok {
		j.UpdatedAt = now
	}
	out := c.Comment
	return &out, nil
}

func (m *Memory) DeleteComment(_ context.Context, id, userID string) error {
	if err := m.fail("DeleteComment"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok || c.userID != userID {
		return store.ErrNotFound
	}
	delete(m.comments, id)
	if j, ok := m.jobs[c.JobID]; ok {
		j.UpdatedAt = m.now()
	}
	return nil
}

// withComments copies j and attaches its comments newest first. Callers hold mu.
func (m *Memory) withComments(j *models.Job) models.Job {
	out := *j
	var cs []*comment
	for _, c := range m.comments {
		if c.JobID == j.ID {
			cs = append(cs, c)
		}
	}
	slices.SortFunc(cs, func(a, b *comment) int { return b.seq - a.seq })
	out.Comments = make([]models.Comment, 0, len(cs))
	for _, c := range cs {
		out.Comments = append(out.Comments, c.Comment)
	}
	return out
}

var _ store.Store = (*Memory)(nil)
