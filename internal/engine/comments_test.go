package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/kiranshivaraju/jobtracker/internal/engine"
	"github.com/kiranshivaraju/jobtracker/internal/remote/mock"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withComments(j models.Job, cs ...models.Comment) models.Job {
	j.Comments = cs
	return j
}

func TestAddComment_RejectsBlankContent(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client, job("a", models.StatusWishlist, 0))

	_, err := e.AddComment(context.Background(), "a", "   ")
	assert.True(t, engine.IsValidation(err))
	_, err = e.UpdateComment(context.Background(), "a", "c1", "")
	assert.True(t, engine.IsValidation(err))
	assert.Equal(t, 0, client.CallCount("AddComment")+client.CallCount("UpdateComment"))
}

func TestAddComment_NotOptimistic(t *testing.T) {
	client := &mock.Client{}
	old := models.Comment{ID: "c0", JobID: "a", Content: "old", CreatedAt: t0, UpdatedAt: t0}
	e, _, _ := newLoaded(t, client, withComments(job("a", models.StatusWishlist, 0), old))

	serverTime := t0.Add(48 * time.Hour)
	var countDuring int
	var sent string
	client.AddCommentFunc = func(_ context.Context, jobID, content string) (*models.Comment, error) {
		j, _ := e.Job(jobID)
		countDuring = len(j.Comments)
		sent = content
		return &models.Comment{ID: "c1", JobID: jobID, Content: content, CreatedAt: serverTime, UpdatedAt: serverTime}, nil
	}

	c, err := e.AddComment(context.Background(), "a", "  phone screen  ")
	require.NoError(t, err)
	assert.Equal(t, "phone screen", sent)
	assert.Equal(t, 1, countDuring, "nothing inserted before confirmation")
	assert.Equal(t, "c1", c.ID)

	j, _ := e.Job("a")
	require.Len(t, j.Comments, 2)
	assert.Equal(t, "c1", j.Comments[0].ID, "newest first")
	assert.Equal(t, serverTime, j.UpdatedAt)
}

func TestAddComment_FailureLeavesStateUnchanged(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client, job("a", models.StatusWishlist, 0))
	before := e.Jobs()
	client.AddCommentFunc = func(context.Context, string, string) (*models.Comment, error) { return nil, errBoom }

	_, err := e.AddComment(context.Background(), "a", "hi")
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, before, e.Jobs())
}

func TestAddComment_UnknownJob(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client)
	_, err := e.AddComment(context.Background(), "nope", "hi")
	assert.ErrorIs(t, err, engine.ErrJobNotFound)
	assert.Equal(t, 0, client.CallCount("AddComment"))
}

func TestUpdateComment_ReplacesInPlace(t *testing.T) {
	client := &mock.Client{}
	c2 := models.Comment{ID: "c2", JobID: "a", Content: "second", CreatedAt: t0.Add(time.Hour)}
	c1 := models.Comment{ID: "c1", JobID: "a", Content: "first", CreatedAt: t0}
	e, _, _ := newLoaded(t, client, withComments(job("a", models.StatusWishlist, 0), c1, c2))

	edited := t0.Add(72 * time.Hour)
	client.UpdateCommentFunc = func(_ context.Context, id, content string) (*models.Comment, error) {
		return &models.Comment{ID: id, JobID: "a", Content: content, CreatedAt: t0, UpdatedAt: edited}, nil
	}

	_, err := e.UpdateComment(context.Background(), "a", "c1", "first, edited")
	require.NoError(t, err)

	j, _ := e.Job("a")
	assert.Equal(t, []string{"c2", "c1"}, []string{j.Comments[0].ID, j.Comments[1].ID})
	assert.Equal(t, "first, edited", j.Comments[1].Content)
	assert.Equal(t, edited, j.UpdatedAt)
}

func TestUpdateComment_UnknownComment(t *testing.T) {
	client := &mock.Client{}
	e, _, _ := newLoaded(t, client, job("a", models.StatusWishlist, 0))
	_, err := e.UpdateComment(context.Background(), "a", "ghost", "text")
	assert.ErrorIs(t, err, engine.ErrCommentNotFound)
	assert.Equal(t, 0, client.CallCount("UpdateComment"))
}

func TestDeleteComment_UsesLocalTime(t *testing.T) {
	client := &mock.Client{}
	c1 := models.Comment{ID: "c1", JobID: "a", Content: "x", CreatedAt: t0}
	e, _, _ := newLoaded(t, client, withComments(job("a", models.StatusWishlist, 0), c1))

	require.NoError(t, e.DeleteComment(context.Background(), "a", "c1"))

	j, _ := e.Job("a")
	assert.NotNil(t, j.Comments)
	assert.Empty(t, j.Comments)
	assert.Equal(t, fixedNow, j.UpdatedAt)
}

func TestDeleteComment_FailureKeepsComment(t *testing.T) {
	client := &mock.Client{}
	c1 := models.Comment{ID: "c1", JobID: "a", Content: "x", CreatedAt: t0}
	e, _, _ := newLoaded(t, client, withComments(job("a", models.StatusWishlist, 0), c1))
	client.DeleteCommentFunc = func(context.Context, string) error { return errBoom }

	assert.ErrorIs(t, e.DeleteComment(context.Background(), "a", "c1"), errBoom)
	j, _ := e.Job("a")
	assert.Len(t, j.Comments, 1)
	assert.Equal(t, t0, j.UpdatedAt)
}

func TestCommentOps_Offline(t *testing.T) {
	client := &mock.Client{}
	e, _, conn := newLoaded(t, client, job("a", models.StatusWishlist, 0))
	conn.online.Store(false)

	_, err := e.AddComment(context.Background(), "a", "hi")
	assert.ErrorIs(t, err, engine.ErrOffline)
	assert.ErrorIs(t, e.DeleteComment(context.Background(), "a", "c1"), engine.ErrOffline)
}
