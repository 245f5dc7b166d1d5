package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progman-api/internal/domain"
	"progman-api/internal/dto"
	"progman-api/internal/response"
)

func TestProjectService_CreateProject(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		req         *dto.CreateProjectRequest
		wantErrCode string
	}{
		{"success: name only", &dto.CreateProjectRequest{Name: "Launch"}, ""},
		{"success: with base date", &dto.CreateProjectRequest{Name: "Launch", BaseDate: strPtr("2024-01-10")}, ""},
		{"failure: missing name", &dto.CreateProjectRequest{}, response.ErrCodeValidation},
		{"failure: bad base date", &dto.CreateProjectRequest{Name: "Launch", BaseDate: strPtr("2024/01/10")}, response.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			got, err := env.projects.CreateProject(ctx, tt.req)
			if tt.wantErrCode != "" {
				assert.True(t, response.IsCode(err, tt.wantErrCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, got.ID)
			assert.Equal(t, tt.req.BaseDate, got.BaseDate)
		})
	}
}

func TestProjectService_CreateProjectSeedsTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.projects.CreateProject(ctx, &dto.CreateProjectRequest{Name: "Launch"})
	require.NoError(t, err)

	rows, err := env.schedules.ListSchedules(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Wireframes", "Review", "Launch"}, []string{rows[0].Item, rows[1].Item, rows[2].Item})
	assert.Equal(t, "Milestone", rows[2].Category)
	assert.Equal(t, 2, rows[2].SortOrder)

	list, err := env.projects.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProjectService_UpdateProjectShiftsDates(t *testing.T) {
	ctx := context.Background()

	t.Run("success: new base date moves every row", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.seedProject(t, "Launch", strPtr("2024-01-10"))
		a := &domain.Schedule{ProjectID: p.ID, Category: "A", Item: "a", StartDate: strPtr("2024-01-10"), Duration: intPtr(3)}
		b := &domain.Schedule{ProjectID: p.ID, Category: "A", Item: "b", StartDate: strPtr("2024-01-15"), ActualStart: strPtr("2024-01-16")}
		env.seedRows(t, a, b)

		res, err := env.projects.UpdateProject(ctx, p.ID, &dto.UpdateProjectRequest{BaseDate: dto.Some("2024-01-20")})
		require.NoError(t, err)
		assert.Equal(t, 10, res.ShiftedDays)
		assert.EqualValues(t, 2, res.ShiftedRows)
		assert.Equal(t, "2024-01-20", *res.Project.BaseDate)

		rows, err := env.repos.Schedules.FindByProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-20", *rows[0].StartDate)
		assert.Equal(t, "2024-01-22", *rows[0].EndDate)
		assert.Equal(t, "2024-01-25", *rows[1].StartDate)
		assert.Equal(t, "2024-01-16", *rows[1].ActualStart)
		assert.Contains(t, env.broadcaster.Events(), dto.EventSchedulesUpdated)
	})

	t.Run("success: unchanged base date does not shift", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.seedProject(t, "Launch", strPtr("2024-01-10"))
		env.seedRows(t, &domain.Schedule{ProjectID: p.ID, Category: "A", Item: "a", StartDate: strPtr("2024-01-01")})

		res, err := env.projects.UpdateProject(ctx, p.ID, &dto.UpdateProjectRequest{
			Name:     dto.Some("Renamed"),
			BaseDate: dto.Some("2024-01-10"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", res.Project.Name)
		assert.Zero(t, res.ShiftedRows)

		rows, err := env.repos.Schedules.FindByProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", *rows[0].StartDate)
	})

	t.Run("success: clearing the base date does not shift", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.seedProject(t, "Launch", strPtr("2024-01-10"))
		env.seedRows(t, &domain.Schedule{ProjectID: p.ID, Category: "A", Item: "a", StartDate: strPtr("2024-01-10")})

		res, err := env.projects.UpdateProject(ctx, p.ID, &dto.UpdateProjectRequest{BaseDate: dto.Null[string]()})
		require.NoError(t, err)
		assert.Nil(t, res.Project.BaseDate)
		assert.Zero(t, res.ShiftedRows)
	})

	t.Run("failure: bad row leaves project and rows untouched", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.seedProject(t, "Launch", strPtr("2024-01-10"))
		env.seedRows(t,
			&domain.Schedule{ProjectID: p.ID, Category: "A", Item: "a", StartDate: strPtr("2024-01-10")},
			&domain.Schedule{ProjectID: p.ID, Category: "A", Item: "b", StartDate: strPtr("never")},
		)

		_, err := env.projects.UpdateProject(ctx, p.ID, &dto.UpdateProjectRequest{BaseDate: dto.Some("2024-01-20")})
		require.Error(t, err)

		stored, err := env.repos.Projects.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-10", *stored.BaseDate)
		rows, err := env.repos.Schedules.FindByProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-10", *rows[0].StartDate)
	})

	t.Run("failure: unknown project", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.projects.UpdateProject(ctx, 7, &dto.UpdateProjectRequest{Name: dto.Some("x")})
		assert.True(t, response.IsCode(err, response.ErrCodeNotFound))
	})
}

func TestProjectService_DeleteProjectCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.projects.CreateProject(ctx, &dto.CreateProjectRequest{Name: "Launch"})
	require.NoError(t, err)
	_, err = env.comments.UpsertComment(ctx, &dto.UpsertCommentRequest{ProjectID: p.ID, Owner: "Design", Body: "draft", CommentDate: "2024-05-01"})
	require.NoError(t, err)

	require.NoError(t, env.projects.DeleteProject(ctx, p.ID))

	rows, err := env.schedules.ListSchedules(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	pages, err := env.comments.ListPages(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, pages.Pages)
	assert.Nil(t, pages.LatestDate)

	_, err = env.projects.GetProject(ctx, p.ID)
	assert.True(t, response.IsCode(err, response.ErrCodeNotFound))

	err = env.projects.DeleteProject(ctx, p.ID)
	assert.True(t, response.IsCode(err, response.ErrCodeNotFound))
}
