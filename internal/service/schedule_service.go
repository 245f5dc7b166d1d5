package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"progman-api/internal/datecalc"
	"progman-api/internal/domain"
	"progman-api/internal/dto"
	"progman-api/internal/metrics"
	"progman-api/internal/realtime"
	"progman-api/internal/repository"
	"progman-api/internal/response"
)

// ScheduleService defines the interface for schedule business logic
type ScheduleService interface {
	ListSchedules(ctx context.Context, projectID uint) ([]dto.ScheduleResponse, error)
	UpdateSchedule(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	ShiftProjectDates(ctx context.Context, projectID uint, deltaDays int, includeActual bool) (*dto.ShiftDatesResponse, error)
	ImportFromSpreadsheet(ctx context.Context, projectID uint, rows []dto.ImportRow) (int, error)
	BroadcastSnapshot(ctx context.Context, projectID uint) error
}

type scheduleServiceImpl struct {
	scheduleRepo  repository.ScheduleRepository
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	tx            repository.Transactor
	broadcaster   Broadcaster
	hidden        map[string]struct{}
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewScheduleService creates a new instance of ScheduleService.
// Rows in hiddenCategories are left out of listings and snapshots.
func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	tx repository.Transactor,
	broadcaster Broadcaster,
	hiddenCategories []string,
	m *metrics.Metrics,
	logger *zap.Logger,
) ScheduleService {
	hidden := make(map[string]struct{}, len(hiddenCategories))
	for _, c := range hiddenCategories {
		hidden[c] = struct{}{}
	}
	return &scheduleServiceImpl{
		scheduleRepo:  scheduleRepo,
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		tx:            tx,
		broadcaster:   broadcaster,
		hidden:        hidden,
		metrics:       m,
		logger:        logger,
	}
}

// ListSchedules returns the visible rows of a project. An unknown or deleted
// project yields an empty list.
func (s *scheduleServiceImpl) ListSchedules(ctx context.Context, projectID uint) ([]dto.ScheduleResponse, error) {
	rows, err := s.scheduleRepo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, internalError("Failed to fetch schedules", err)
	}
	return dto.ToScheduleResponses(s.visible(rows)), nil
}

func (s *scheduleServiceImpl) visible(rows []*domain.Schedule) []*domain.Schedule {
	if len(s.hidden) == 0 {
		return rows
	}
	out := make([]*domain.Schedule, 0, len(rows))
	for _, r := range rows {
		if _, ok := s.hidden[r.Category]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// UpdateSchedule merges req over the persisted row, recomputes derived dates,
// saves it and broadcasts the project's full schedule.
func (s *scheduleServiceImpl) UpdateSchedule(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, validationError(err)
	}

	row, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "Schedule not found", "Failed to fetch schedule")
	}

	req.ApplyTo(row)
	row.Normalize()

	if err := s.scheduleRepo.Save(ctx, row); err != nil {
		return nil, internalError("Failed to update schedule", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementScheduleUpdated()
	}
	s.logger.Debug("Schedule updated",
		zap.Uint("schedule_id", row.ID),
		zap.Uint("project_id", row.ProjectID),
	)

	s.broadcastBestEffort(ctx, row.ProjectID)

	resp := dto.ToScheduleResponse(row)
	return &resp, nil
}

// ShiftProjectDates moves every row's start date by deltaDays in one transaction
func (s *scheduleServiceImpl) ShiftProjectDates(ctx context.Context, projectID uint, deltaDays int, includeActual bool) (*dto.ShiftDatesResponse, error) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, notFoundOrInternal(err, "Project not found", "Failed to fetch project")
	}

	var shifted int64
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := shiftRows(ctx, s.scheduleRepo.WithTx(tx), projectID, deltaDays, includeActual)
		shifted = n
		return err
	})
	if err != nil {
		return nil, internalError("Failed to shift schedule dates", err)
	}

	if shifted > 0 {
		s.logger.Info("Schedule dates shifted",
			zap.Uint("project_id", projectID),
			zap.Int("delta_days", deltaDays),
			zap.Int64("rows", shifted),
		)
		s.broadcastBestEffort(ctx, projectID)
	}
	return &dto.ShiftDatesResponse{DeltaDays: deltaDays, ShiftedRows: shifted}, nil
}

// shiftRows adds deltaDays to the start date (and optionally the actual start)
// of every row of the project. It must run inside a transaction.
func shiftRows(ctx context.Context, repo repository.ScheduleRepository, projectID uint, deltaDays int, includeActual bool) (int64, error) {
	if deltaDays == 0 {
		return 0, nil
	}
	rows, err := repo.FindByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	var shifted int64
	for _, row := range rows {
		changed := false
		if row.StartDate != nil {
			moved, err := datecalc.AddDays(*row.StartDate, deltaDays)
			if err != nil {
				return shifted, fmt.Errorf("row %d: %w", row.ID, err)
			}
			row.StartDate = &moved
			changed = true
		}
		if includeActual && row.ActualStart != nil {
			moved, err := datecalc.AddDays(*row.ActualStart, deltaDays)
			if err != nil {
				return shifted, fmt.Errorf("row %d: %w", row.ID, err)
			}
			row.ActualStart = &moved
			changed = true
		}
		if !changed {
			continue
		}
		row.Normalize()
		if err := repo.Save(ctx, row); err != nil {
			return shifted, err
		}
		shifted++
	}
	return shifted, nil
}

// ImportFromSpreadsheet replaces every row of the project with rows.
// Rows without an item are skipped and a blank category becomes "uncategorized".
func (s *scheduleServiceImpl) ImportFromSpreadsheet(ctx context.Context, projectID uint, rows []dto.ImportRow) (int, error) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return 0, notFoundOrInternal(err, "Project not found", "Failed to fetch project")
	}

	schedules := buildImportRows(projectID, rows)
	if len(schedules) == 0 {
		return 0, response.NewValidationError("No rows with an item name to import", "")
	}

	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		// estimates point at row ids that are about to disappear
		if err := s.milestoneRepo.WithTx(tx).DeleteByProject(ctx, projectID); err != nil {
			return err
		}
		scheduleRepo := s.scheduleRepo.WithTx(tx)
		if _, err := scheduleRepo.DeleteByProject(ctx, projectID); err != nil {
			return err
		}
		return scheduleRepo.CreateBatch(ctx, schedules)
	})
	if err != nil {
		return 0, internalError("Failed to import schedules", err)
	}

	if s.metrics != nil {
		s.metrics.AddImportedRows(len(schedules))
	}
	s.logger.Info("Schedules imported",
		zap.Uint("project_id", projectID),
		zap.Int("rows", len(schedules)),
		zap.Int("skipped", len(rows)-len(schedules)),
	)

	s.broadcastBestEffort(ctx, projectID)
	return len(schedules), nil
}

func buildImportRows(projectID uint, rows []dto.ImportRow) []*domain.Schedule {
	out := make([]*domain.Schedule, 0, len(rows))
	for _, r := range rows {
		item := strings.TrimSpace(r.Item)
		if item == "" {
			continue
		}
		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = domain.UncategorizedLabel
		}
		row := &domain.Schedule{
			ProjectID: projectID,
			Category:  category,
			Item:      item,
			Owner:     r.Owner,
			StartDate: r.StartDate,
			Duration:  r.Duration,
			Progress:  r.Progress,
			SortOrder: len(out),
		}
		row.Normalize()
		out = append(out, row)
	}
	return out
}

// BroadcastSnapshot sends the project's visible rows to its room
func (s *scheduleServiceImpl) BroadcastSnapshot(ctx context.Context, projectID uint) error {
	rows, err := s.ListSchedules(ctx, projectID)
	if err != nil {
		return err
	}
	return s.broadcaster.Broadcast(ctx, realtime.ProjectRoom(projectID), dto.EventSchedulesUpdated, rows)
}

func (s *scheduleServiceImpl) broadcastBestEffort(ctx context.Context, projectID uint) {
	if err := s.BroadcastSnapshot(ctx, projectID); err != nil {
		s.logger.Warn("Failed to broadcast schedule snapshot",
			zap.Uint("project_id", projectID),
			zap.Error(err),
		)
	}
}
