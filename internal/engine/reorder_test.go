package engine_test

import (
	"context"
	"testing"

	"github.com/kiranshivaraju/jobtracker/internal/engine"
	"github.com/kiranshivaraju/jobtracker/internal/remote/mock"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pick(e *engine.Engine, idList ...string) []models.Job {
	out := make([]models.Job, 0, len(idList))
	for _, id := range idList {
		j, _ := e.Job(id)
		out = append(out, j)
	}
	return out
}

func TestReorder_NoOpSkipsRemoteCall(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client,
		job("a", models.StatusWishlist, 0), job("b", models.StatusWishlist, 1), job("c", models.StatusWishlist, 2))

	require.NoError(t, e.Reorder(context.Background(), pick(e, "a", "b", "c")))
	assert.Equal(t, 0, client.CallCount("ReorderJobs"))
}

func TestReorder_CrossScopeSplice(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client,
		job("a", models.StatusWishlist, 0),
		job("b", models.StatusInProgress, 1),
		job("c", models.StatusWishlist, 2),
		job("d", models.StatusArchived, 3),
	)
	require.NoError(t, e.SetActiveFilter(engine.Filter(models.StatusWishlist)))

	var sent []models.ReorderEntry
	client.ReorderJobsFunc = func(_ context.Context, orders []models.ReorderEntry) error {
		sent = orders
		return nil
	}

	require.NoError(t, e.Reorder(context.Background(), pick(e, "c", "a")))

	jobs := e.Jobs()
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids(jobs))
	for i, j := range jobs {
		assert.Equal(t, i, j.SortOrder)
	}

	require.Len(t, sent, 4)
	for i, entry := range sent {
		assert.Equal(t, jobs[i].ID, entry.ID)
		assert.Equal(t, i, entry.SortOrder)
		assert.Nil(t, entry.Status)
	}
}

func TestReorder_OptimisticThenRollback(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client,
		job("a", models.StatusWishlist, 0), job("b", models.StatusWishlist, 1), job("c", models.StatusWishlist, 2))
	before := e.Jobs()

	var during []string
	client.ReorderJobsFunc = func(context.Context, []models.ReorderEntry) error {
		during = ids(e.Jobs())
		return errBoom
	}

	err := e.Reorder(context.Background(), pick(e, "c", "b", "a"))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"c", "b", "a"}, during)
	assert.Equal(t, before, e.Jobs())
}

func TestReorder_CrossStatusMoveSendsStatus(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client,
		job("a", models.StatusWishlist, 0), job("b", models.StatusInProgress, 1))

	var sent []models.ReorderEntry
	client.ReorderJobsFunc = func(_ context.Context, orders []models.ReorderEntry) error {
		sent = orders
		return nil
	}

	moved := pick(e, "b", "a")
	moved[0].Status = models.StatusWishlist
	require.NoError(t, e.Reorder(context.Background(), moved))

	require.Len(t, sent, 2)
	require.NotNil(t, sent[0].Status)
	assert.Equal(t, models.StatusWishlist, *sent[0].Status)
	assert.Nil(t, sent[1].Status)

	b, _ := e.Job("b")
	assert.Equal(t, models.StatusWishlist, b.Status)
}

func TestReorder_StatusChangeAloneIsNotANoOp(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client, job("a", models.StatusWishlist, 0))

	moved := pick(e, "a")
	moved[0].Status = models.StatusArchived
	require.NoError(t, e.Reorder(context.Background(), moved))
	assert.Equal(t, 1, client.CallCount("ReorderJobs"))
}

func TestReorder_Validation(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client,
		job("a", models.StatusWishlist, 0), job("b", models.StatusWishlist, 1), job("c", models.StatusArchived, 2))

	assert.True(t, engine.IsValidation(e.Reorder(context.Background(), nil)))
	assert.True(t, engine.IsValidation(e.Reorder(context.Background(), pick(e, "a", "a", "b", "c"))))
	assert.ErrorIs(t, e.Reorder(context.Background(), []models.Job{{ID: "ghost"}}), engine.ErrJobNotFound)

	require.NoError(t, e.SetActiveFilter(engine.Filter(models.StatusWishlist)))
	assert.True(t, engine.IsValidation(e.Reorder(context.Background(), pick(e, "b"))), "view member a is missing")

	assert.Equal(t, 0, client.CallCount("ReorderJobs"))
}

func TestReorder_Offline(t *testing.T) {
	client := &mock.Client{}
	e, _, conn := newLoaded(t, client, job("a", models.StatusWishlist, 0), job("b", models.StatusWishlist, 1))
	conn.online.Store(false)
	before := e.Jobs()

	assert.ErrorIs(t, e.Reorder(context.Background(), pick(e, "b", "a")), engine.ErrOffline)
	assert.Equal(t, before, e.Jobs())
}

func TestReorder_RollbackDoesNotDisturbEarlierSnapshot(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client,
		job("a", models.StatusWishlist, 5), job("b", models.StatusWishlist, 9))
	before := e.Jobs()

	client.ReorderJobsFunc = func(context.Context, []models.ReorderEntry) error { return errBoom }
	_ = e.Reorder(context.Background(), pick(e, "b", "a"))

	jobs := e.Jobs()
	assert.Equal(t, before, jobs)
	assert.Equal(t, 5, jobs[0].SortOrder, "sort orders from before the reorder are restored")
}
