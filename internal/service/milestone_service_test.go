package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progman-api/internal/domain"
	"progman-api/internal/dto"
	"progman-api/internal/milestone"
	"progman-api/internal/response"
)

func TestMilestoneService_Estimates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Launch", nil)

	beta := &domain.Schedule{ProjectID: p.ID, Category: "Milestone", Item: "Beta", StartDate: strPtr("2024-03-01")}
	ga := &domain.Schedule{ProjectID: p.ID, Category: "Milestone", Item: "GA", StartDate: strPtr("2024-03-05")}
	task := &domain.Schedule{ProjectID: p.ID, Category: "Dev", Item: "Build"}
	env.seedRows(t, beta, ga, task)

	list, err := env.milestones.ListEstimates(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].DelayDays)
	assert.Equal(t, "", list[0].Status)

	list, err = env.milestones.UpsertEstimate(ctx, p.ID, beta.ID, &dto.UpsertMilestoneEstimateRequest{EstimateDate: strPtr("2024-03-05")})
	require.NoError(t, err)
	require.NotNil(t, list[0].DelayDays)
	assert.Equal(t, 5, *list[0].DelayDays)
	assert.Equal(t, string(milestone.StatusBehind), list[0].Status)
	assert.Equal(t, "5 days late", list[0].Label)

	list, err = env.milestones.UpsertEstimate(ctx, p.ID, ga.ID, &dto.UpsertMilestoneEstimateRequest{EstimateDate: strPtr("2024-03-01")})
	require.NoError(t, err)
	assert.Equal(t, -4, *list[1].DelayDays)
	assert.Equal(t, string(milestone.StatusAhead), list[1].Status)

	call, ok := env.broadcaster.Last(dto.EventMilestonesUpdated)
	require.True(t, ok)
	payload := call.Payload.(dto.MilestonesUpdatedPayload)
	assert.Equal(t, p.ID, payload.ProjectID)
	assert.Len(t, payload.Estimates, 2)

	list, err = env.milestones.UpsertEstimate(ctx, p.ID, beta.ID, &dto.UpsertMilestoneEstimateRequest{})
	require.NoError(t, err)
	assert.Nil(t, list[0].EstimateDate)
	assert.Nil(t, list[0].DelayDays)

	stored, err := env.repos.Milestones.FindByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestMilestoneService_PlannedFallsBackToEndDate(t *testing.T) {
	row := &domain.Schedule{ID: 3, Item: "Freeze", EndDate: strPtr("2024-06-10")}
	got := toEstimateResponse(row, strPtr("2024-06-10"))
	require.NotNil(t, got.PlannedDate)
	assert.Equal(t, "2024-06-10", *got.PlannedDate)
	assert.Equal(t, 0, *got.DelayDays)
	assert.Equal(t, string(milestone.StatusOnTime), got.Status)
	assert.Equal(t, "", got.Label)
}

func TestMilestoneService_UpsertEstimateErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Launch", nil)
	other := env.seedProject(t, "Other", nil)
	row := &domain.Schedule{ProjectID: other.ID, Category: "Milestone", Item: "GA"}
	env.seedRows(t, row)

	_, err := env.milestones.UpsertEstimate(ctx, p.ID, row.ID, &dto.UpsertMilestoneEstimateRequest{EstimateDate: strPtr("2024-01-01")})
	assert.True(t, response.IsCode(err, response.ErrCodeNotFound))

	_, err = env.milestones.UpsertEstimate(ctx, p.ID, 404, &dto.UpsertMilestoneEstimateRequest{})
	assert.True(t, response.IsCode(err, response.ErrCodeNotFound))

	_, err = env.milestones.UpsertEstimate(ctx, other.ID, row.ID, &dto.UpsertMilestoneEstimateRequest{EstimateDate: strPtr("tomorrow")})
	assert.True(t, response.IsCode(err, response.ErrCodeValidation))
}
