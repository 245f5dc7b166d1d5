package job

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"progman-api/internal/domain"
	"progman-api/internal/repository"
	"progman-api/internal/testutil"
)

type countingRecorder struct {
	total int64
}

func (r *countingRecorder) AddPagesBackfilled(n int64) {
	atomic.AddInt64(&r.total, n)
}

func TestPageBackfillJob_CreatesMissingPages(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	project := &domain.Project{Name: "Backfill"}
	require.NoError(t, db.Create(project).Error)

	// Comments written without their pages
	require.NoError(t, db.Create(&[]domain.Comment{
		{ProjectID: project.ID, Owner: "Design", CommentDate: "2024-05-01", Body: "a"},
		{ProjectID: project.ID, Owner: "QA", CommentDate: "2024-05-01", Body: "b"},
		{ProjectID: project.ID, Owner: "Design", CommentDate: "2024-05-08", Body: "c"},
	}).Error)
	require.NoError(t, db.Create(&domain.CommentPage{ProjectID: project.ID, CommentDate: "2024-05-08"}).Error)

	rec := &countingRecorder{}
	j := NewPageBackfillJob(repository.NewCommentRepository(db), rec, zap.NewNop())

	created, err := j.RunContext(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, created)
	assert.EqualValues(t, 1, atomic.LoadInt64(&rec.total))

	var pages []domain.CommentPage
	require.NoError(t, db.Order("comment_date").Find(&pages).Error)
	require.Len(t, pages, 2)
	assert.Equal(t, "2024-05-01", pages[0].CommentDate)

	created, err = j.RunContext(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.EqualValues(t, 1, atomic.LoadInt64(&rec.total))
}

func TestPageBackfillJob_NilRecorder(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	j := NewPageBackfillJob(repository.NewCommentRepository(db), nil, zap.NewNop())
	assert.NotPanics(t, j.Run)
}

type tickJob struct {
	runs int32
}

func (j *tickJob) Name() string { return "tick" }
func (j *tickJob) Run()         { atomic.AddInt32(&j.runs, 1) }

func TestScheduler(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.Add("", &tickJob{}))
	assert.Equal(t, 0, s.Len())

	assert.Error(t, s.Add("not a spec", &tickJob{}))

	j := &tickJob{}
	require.NoError(t, s.Add("@every 1s", j))
	assert.Equal(t, 1, s.Len())

	s.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&j.runs) > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
