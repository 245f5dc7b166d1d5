package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"progman-api/internal/domain"
	"progman-api/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestScheduleRepository_Ordering(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()

	rows := []*domain.Schedule{
		{ProjectID: 1, Category: "B", Item: "b1", SortOrder: 2},
		{ProjectID: 1, Category: "A", Item: "a1", SortOrder: 1, StartDate: strPtr("2024-02-01")},
		{ProjectID: 1, Category: "A", Item: "a0", SortOrder: 0},
		{ProjectID: 2, Category: "X", Item: "other", SortOrder: 0, StartDate: strPtr("2020-01-01")},
	}
	require.NoError(t, repo.CreateBatch(ctx, rows))

	got, err := repo.FindByProject(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a0", "a1", "b1"}, []string{got[0].Item, got[1].Item, got[2].Item})

	earliest, err := repo.FindEarliestStart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a1", earliest.Item)

	_, err = repo.FindEarliestStart(ctx, 99)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	n, err := repo.DeleteByProject(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err = repo.FindByProject(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScheduleRepository_SaveClearsColumns(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()

	dur := 3
	row := &domain.Schedule{ProjectID: 1, Category: "A", Item: "a", StartDate: strPtr("2024-01-01"), Duration: &dur}
	row.Normalize()
	require.NoError(t, repo.CreateBatch(ctx, []*domain.Schedule{row}))

	row.Duration = nil
	row.Normalize()
	require.NoError(t, repo.Save(ctx, row))

	reloaded, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Duration)
	assert.Nil(t, reloaded.EndDate)
	require.NotNil(t, reloaded.StartDate)
}

func TestCommentRepository_Pages(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	latest, err := repo.LatestPageDate(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.CreatePage(ctx, &domain.CommentPage{ProjectID: 1, CommentDate: "2024-05-01"}))
	err = repo.CreatePage(ctx, &domain.CommentPage{ProjectID: 1, CommentDate: "2024-05-01"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	created, err := repo.EnsurePage(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.EnsurePage(ctx, 1, "2024-05-03")
	require.NoError(t, err)
	assert.True(t, created)

	pages, err := repo.FindPages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "2024-05-03", pages[0].CommentDate)

	latest, err = repo.LatestPageDate(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-05-03", *latest)

	n, err := repo.DeletePage(ctx, 1, "2024-05-03")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeletePage(ctx, 1, "2024-05-03")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestCommentRepository_UpsertComment(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertComment(ctx, &domain.Comment{ProjectID: 1, Owner: "Design", CommentDate: "2024-05-01", Body: "draft"}))
	require.NoError(t, repo.UpsertComment(ctx, &domain.Comment{ProjectID: 1, Owner: "Design", CommentDate: "2024-05-01", Body: "final"}))
	require.NoError(t, repo.UpsertComment(ctx, &domain.Comment{ProjectID: 1, Owner: domain.OverallOwner, CommentDate: "2024-05-01", Body: "ok"}))
	require.NoError(t, repo.UpsertComment(ctx, &domain.Comment{ProjectID: 1, Owner: "Design", CommentDate: "2024-05-02", Body: "next"}))

	day, err := repo.FindComments(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "final", day[0].Body)

	all, err := repo.FindComments(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := repo.DeleteCommentsByDate(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCommentRepository_BackfillPages(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreatePage(ctx, &domain.CommentPage{ProjectID: 1, CommentDate: "2024-05-01"}))
	require.NoError(t, repo.UpsertComment(ctx, &domain.Comment{ProjectID: 1, Owner: "A", CommentDate: "2024-05-01", Body: "x"}))
	require.NoError(t, repo.UpsertComment(ctx, &domain.Comment{ProjectID: 1, Owner: "A", CommentDate: "2024-05-02", Body: "x"}))
	require.NoError(t, repo.UpsertComment(ctx, &domain.Comment{ProjectID: 1, Owner: "B", CommentDate: "2024-05-02", Body: "y"}))

	n, err := repo.BackfillPages(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.BackfillPages(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	count, err := repo.CountPages(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestProgressRepository_Upsert(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.CategoryProgress{ProjectID: 1, Category: "Design", ProgressDate: "2024-05-01", Status: domain.ProgressCaution}))
	require.NoError(t, repo.Upsert(ctx, &domain.CategoryProgress{ProjectID: 1, Category: "Design", ProgressDate: "2024-05-01", Status: domain.ProgressDanger}))

	list, err := repo.FindByDate(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.ProgressDanger, list[0].Status)

	n, err := repo.DeleteByDate(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMilestoneRepository_UpsertAndDelete(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewMilestoneRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.MilestoneEstimate{ProjectID: 1, ScheduleID: 7, EstimateDate: strPtr("2024-03-05")}))
	require.NoError(t, repo.Upsert(ctx, &domain.MilestoneEstimate{ProjectID: 1, ScheduleID: 7, EstimateDate: strPtr("2024-03-09")}))

	list, err := repo.FindByProject(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-03-09", *list[0].EstimateDate)

	n, err := repo.Delete(ctx, 1, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err = repo.FindByProject(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransactor_RollsBack(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	tr := NewTransactor(db)
	projects := NewProjectRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tr.Transaction(ctx, func(tx *gorm.DB) error {
		if err := projects.WithTx(tx).Create(ctx, &domain.Project{Name: "rolled back"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := projects.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
