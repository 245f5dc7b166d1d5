package service

import (
	"context"

	"go.uber.org/zap"

	"progman-api/internal/domain"
	"progman-api/internal/dto"
	"progman-api/internal/milestone"
	"progman-api/internal/realtime"
	"progman-api/internal/repository"
	"progman-api/internal/response"
)

// MilestoneService defines the interface for milestone estimates
type MilestoneService interface {
	ListEstimates(ctx context.Context, projectID uint) ([]dto.MilestoneEstimateResponse, error)
	UpsertEstimate(ctx context.Context, projectID, scheduleID uint, req *dto.UpsertMilestoneEstimateRequest) ([]dto.MilestoneEstimateResponse, error)
}

type milestoneServiceImpl struct {
	milestoneRepo repository.MilestoneRepository
	scheduleRepo  repository.ScheduleRepository
	broadcaster   Broadcaster
	category      string
	logger        *zap.Logger
}

// NewMilestoneService creates a new instance of MilestoneService.
// Rows whose category equals category are milestones.
func NewMilestoneService(
	milestoneRepo repository.MilestoneRepository,
	scheduleRepo repository.ScheduleRepository,
	broadcaster Broadcaster,
	category string,
	logger *zap.Logger,
) MilestoneService {
	return &milestoneServiceImpl{
		milestoneRepo: milestoneRepo,
		scheduleRepo:  scheduleRepo,
		broadcaster:   broadcaster,
		category:      category,
		logger:        logger,
	}
}

// ListEstimates returns every milestone row of the project with its estimate and delay
func (s *milestoneServiceImpl) ListEstimates(ctx context.Context, projectID uint) ([]dto.MilestoneEstimateResponse, error) {
	rows, err := s.scheduleRepo.FindByProjectAndCategory(ctx, projectID, s.category)
	if err != nil {
		return nil, internalError("Failed to fetch milestones", err)
	}
	estimates, err := s.milestoneRepo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, internalError("Failed to fetch milestone estimates", err)
	}

	byRow := make(map[uint]*string, len(estimates))
	for _, e := range estimates {
		byRow[e.ScheduleID] = e.EstimateDate
	}

	out := make([]dto.MilestoneEstimateResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toEstimateResponse(row, byRow[row.ID]))
	}
	return out, nil
}

func toEstimateResponse(row *domain.Schedule, estimate *string) dto.MilestoneEstimateResponse {
	planned := row.StartDate
	if planned == nil {
		planned = row.EndDate
	}
	resp := dto.MilestoneEstimateResponse{
		ScheduleID:   row.ID,
		Item:         row.Item,
		PlannedDate:  planned,
		EstimateDate: estimate,
		DelayDays:    milestone.ComputeDelayPtr(planned, estimate),
	}
	if resp.DelayDays != nil {
		resp.Status = string(milestone.Classify(*resp.DelayDays))
		resp.Label = milestone.Label(*resp.DelayDays)
	}
	return resp
}

// UpsertEstimate sets or clears the estimate of one milestone row and returns the refreshed list
func (s *milestoneServiceImpl) UpsertEstimate(ctx context.Context, projectID, scheduleID uint, req *dto.UpsertMilestoneEstimateRequest) ([]dto.MilestoneEstimateResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, validationError(err)
	}

	row, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, notFoundOrInternal(err, "Schedule not found", "Failed to fetch schedule")
	}
	if row.ProjectID != projectID {
		return nil, response.NewNotFoundError("Schedule not found in project", "")
	}

	if req.Cleared() {
		if _, err := s.milestoneRepo.Delete(ctx, projectID, scheduleID); err != nil {
			return nil, internalError("Failed to clear milestone estimate", err)
		}
	} else {
		estimate := &domain.MilestoneEstimate{
			ProjectID:    projectID,
			ScheduleID:   scheduleID,
			EstimateDate: req.EstimateDate,
		}
		if err := s.milestoneRepo.Upsert(ctx, estimate); err != nil {
			return nil, internalError("Failed to save milestone estimate", err)
		}
	}

	list, err := s.ListEstimates(ctx, projectID)
	if err != nil {
		return nil, err
	}

	payload := dto.MilestonesUpdatedPayload{ProjectID: projectID, Estimates: list}
	if err := s.broadcaster.Broadcast(ctx, realtime.ProjectRoom(projectID), dto.EventMilestonesUpdated, payload); err != nil {
		s.logger.Warn("Failed to broadcast milestone estimates",
			zap.Uint("project_id", projectID),
			zap.Error(err),
		)
	}
	return list, nil
}
