package syncstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"progman-api/internal/dto"
)

type fakeCommentAPI struct {
	mu        sync.Mutex
	comments  []dto.CommentResponse
	upserts   []dto.UpsertCommentRequest
	progress  []dto.UpsertProgressRequest
	upsertErr error
	// gate, when set, holds every comment upsert until it is closed
	gate chan struct{}
}

func (f *fakeCommentAPI) GetComments(_ context.Context, _ uint, _ string) ([]dto.CommentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.CommentResponse(nil), f.comments...), nil
}

func (f *fakeCommentAPI) UpsertComment(_ context.Context, req dto.UpsertCommentRequest) (*dto.CommentResponse, error) {
	f.mu.Lock()
	gate := f.gate
	f.upserts = append(f.upserts, req)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &dto.CommentResponse{ProjectID: req.ProjectID, Owner: req.Owner, Body: req.Body, CommentDate: req.CommentDate}, nil
}

func (f *fakeCommentAPI) ListProgress(_ context.Context, _ uint, _ string) ([]dto.CategoryProgressResponse, error) {
	return []dto.CategoryProgressResponse{{Category: "Design", Status: "smooth"}}, nil
}

func (f *fakeCommentAPI) UpsertProgress(_ context.Context, _ uint, req dto.UpsertProgressRequest) (*dto.CategoryProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, req)
	return &dto.CategoryProgressResponse{Category: req.Category, Status: req.Status, ProgressDate: req.ProgressDate}, nil
}

func (f *fakeCommentAPI) Upserts() []dto.UpsertCommentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.UpsertCommentRequest(nil), f.upserts...)
}

func TestCommentBoard_DebouncedDraft(t *testing.T) {
	api := &fakeCommentAPI{comments: []dto.CommentResponse{{Owner: "Design", Body: "old"}}}
	b := NewCommentBoard(api, 30*time.Millisecond, zap.NewNop())
	require.NoError(t, b.Open(context.Background(), 1, "2024-05-01"))
	assert.Equal(t, "old", b.Body("Design"))
	assert.Equal(t, "smooth", b.Status("Design"))

	for _, v := range []string{"d", "dr", "draft"} {
		require.NoError(t, b.Edit("Design", v))
	}
	assert.Equal(t, "draft", b.Body("Design"))
	assert.True(t, b.Saving("Design"))

	assert.Eventually(t, func() bool { return len(api.Upserts()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	upserts := api.Upserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, dto.UpsertCommentRequest{ProjectID: 1, Owner: "Design", Body: "draft", CommentDate: "2024-05-01"}, upserts[0])
	assert.False(t, b.Saving("Design"))
	assert.Equal(t, "draft", b.Body("Design"))
}

func TestCommentBoard_SavingWhileUpsertInFlight(t *testing.T) {
	api := &fakeCommentAPI{gate: make(chan struct{})}
	b := NewCommentBoard(api, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, b.Open(context.Background(), 1, "2024-05-01"))

	require.NoError(t, b.Edit("Design", "slow network"))
	assert.Eventually(t, func() bool { return len(api.Upserts()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, b.Saving("Design"), "the upsert has not returned yet")
	assert.Equal(t, "slow network", b.Body("Design"))

	close(api.gate)
	assert.Eventually(t, func() bool { return !b.Saving("Design") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "slow network", b.Body("Design"))
}

func TestCommentBoard_FailedSaveKeepsDraft(t *testing.T) {
	api := &fakeCommentAPI{upsertErr: errors.New("offline")}
	b := NewCommentBoard(api, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, b.Open(context.Background(), 1, "2024-05-01"))

	require.NoError(t, b.Edit("QA", "pending text"))
	assert.Eventually(t, func() bool { return b.Err() != nil }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "pending text", b.Body("QA"))
}

func TestCommentBoard_CloseFlushes(t *testing.T) {
	api := &fakeCommentAPI{}
	b := NewCommentBoard(api, time.Hour, zap.NewNop())
	require.NoError(t, b.Open(context.Background(), 1, "2024-05-01"))

	require.NoError(t, b.Edit("Design", "final"))
	require.NoError(t, b.SetStatus("Design", "caution"))
	require.NoError(t, b.Close(context.Background()))

	require.Len(t, api.Upserts(), 1)
	assert.Equal(t, "final", api.Upserts()[0].Body)
	require.Len(t, api.progress, 1)
	assert.Equal(t, "caution", api.progress[0].Status)
}

func TestCommentBoard_Watch(t *testing.T) {
	api := &fakeCommentAPI{}
	b := NewCommentBoard(api, time.Hour, zap.NewNop())
	require.NoError(t, b.Open(context.Background(), 1, "2024-05-01"))

	src := make(chanSource, 4)
	src <- frame(t, dto.EventCommentsUpdated, dto.CommentsUpdatedPayload{
		Date:     "2024-05-01",
		Comments: []dto.CommentResponse{{Owner: "Design", Body: "from B"}},
	})
	src <- frame(t, dto.EventCommentsUpdated, dto.CommentsUpdatedPayload{
		Date:     "2024-04-24",
		Comments: []dto.CommentResponse{{Owner: "Design", Body: "other page"}},
	})
	src <- frame(t, dto.EventProgressUpdated, dto.ProgressUpdatedPayload{
		Date:         "2024-05-01",
		ProgressList: []dto.CategoryProgressResponse{{Category: "Design", Status: "danger"}},
	})
	close(src)

	require.NoError(t, b.Watch(context.Background(), src))
	assert.Equal(t, "from B", b.Body("Design"))
	assert.Equal(t, "danger", b.Status("Design"))
}
