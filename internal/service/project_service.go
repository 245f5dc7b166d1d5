package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"progman-api/internal/config"
	"progman-api/internal/datecalc"
	"progman-api/internal/domain"
	"progman-api/internal/dto"
	"progman-api/internal/metrics"
	"progman-api/internal/repository"
)

// ProjectService defines the interface for project business logic
type ProjectService interface {
	ListProjects(ctx context.Context) ([]*dto.ProjectResponse, error)
	GetProject(ctx context.Context, id uint) (*dto.ProjectResponse, error)
	CreateProject(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	UpdateProject(ctx context.Context, id uint, req *dto.UpdateProjectRequest) (*dto.UpdateProjectResponse, error)
	DeleteProject(ctx context.Context, id uint) error
}

// ProjectRepositories groups the repositories a project owns
type ProjectRepositories struct {
	Projects   repository.ProjectRepository
	Schedules  repository.ScheduleRepository
	Comments   repository.CommentRepository
	Progress   repository.ProgressRepository
	Milestones repository.MilestoneRepository
	Imports    repository.ImportRepository
}

type projectServiceImpl struct {
	repos     ProjectRepositories
	tx        repository.Transactor
	schedules ScheduleService
	template  []config.TemplateCategory
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewProjectService creates a new instance of ProjectService.
// New projects are seeded with the rows of template.
func NewProjectService(
	repos ProjectRepositories,
	tx repository.Transactor,
	schedules ScheduleService,
	template []config.TemplateCategory,
	m *metrics.Metrics,
	logger *zap.Logger,
) ProjectService {
	return &projectServiceImpl{
		repos:     repos,
		tx:        tx,
		schedules: schedules,
		template:  template,
		metrics:   m,
		logger:    logger,
	}
}

func (s *projectServiceImpl) ListProjects(ctx context.Context) ([]*dto.ProjectResponse, error) {
	projects, err := s.repos.Projects.FindAll(ctx)
	if err != nil {
		return nil, internalError("Failed to fetch projects", err)
	}
	out := make([]*dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, dto.ToProjectResponse(p))
	}
	return out, nil
}

func (s *projectServiceImpl) GetProject(ctx context.Context, id uint) (*dto.ProjectResponse, error) {
	project, err := s.repos.Projects.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "Project not found", "Failed to fetch project")
	}
	return dto.ToProjectResponse(project), nil
}

// CreateProject inserts the project and its template rows in one transaction
func (s *projectServiceImpl) CreateProject(ctx context.Context, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, validationError(err)
	}

	project := &domain.Project{Name: req.Name}
	if req.BaseDate != nil && *req.BaseDate != "" {
		project.BaseDate = req.BaseDate
	}

	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.repos.Projects.WithTx(tx).Create(ctx, project); err != nil {
			return err
		}
		return s.repos.Schedules.WithTx(tx).CreateBatch(ctx, s.templateRows(project.ID))
	})
	if err != nil {
		return nil, internalError("Failed to create project", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementProjectCreated()
	}
	s.logger.Info("Project created",
		zap.Uint("project_id", project.ID),
		zap.String("name", project.Name),
	)
	return dto.ToProjectResponse(project), nil
}

func (s *projectServiceImpl) templateRows(projectID uint) []*domain.Schedule {
	var rows []*domain.Schedule
	for _, category := range s.template {
		for _, item := range category.Items {
			rows = append(rows, &domain.Schedule{
				ProjectID: projectID,
				Category:  category.Category,
				Item:      item,
				SortOrder: len(rows),
			})
		}
	}
	return rows
}

// UpdateProject applies the name and base date. A changed base date moves
// every row so that the earliest one starts on it, in the same transaction.
func (s *projectServiceImpl) UpdateProject(ctx context.Context, id uint, req *dto.UpdateProjectRequest) (*dto.UpdateProjectResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, validationError(err)
	}

	var (
		project *domain.Project
		delta   int
		shifted int64
	)
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		projects := s.repos.Projects.WithTx(tx)
		schedules := s.repos.Schedules.WithTx(tx)

		current, err := projects.FindByID(ctx, id)
		if err != nil {
			return notFoundOrInternal(err, "Project not found", "Failed to fetch project")
		}
		project = current

		if req.Name.Set && req.Name.Value != nil {
			project.Name = *req.Name.Value
		}

		if req.BaseDate.Set {
			newBase := req.BaseDate.Value
			if newBase != nil && *newBase == "" {
				newBase = nil
			}
			if newBase != nil && !sameDate(project.BaseDate, newBase) {
				delta, err = baseDateDelta(ctx, schedules, id, *newBase)
				if err != nil {
					return err
				}
				shifted, err = shiftRows(ctx, schedules, id, delta, req.IncludeActual)
				if err != nil {
					return err
				}
			}
			project.BaseDate = newBase
		}

		return projects.Update(ctx, project)
	})
	if err != nil {
		return nil, passThrough(err, "Failed to update project")
	}

	if shifted > 0 {
		s.logger.Info("Project base date moved schedule",
			zap.Uint("project_id", id),
			zap.Int("delta_days", delta),
			zap.Int64("rows", shifted),
		)
		if err := s.schedules.BroadcastSnapshot(ctx, id); err != nil {
			s.logger.Warn("Failed to broadcast schedule snapshot", zap.Uint("project_id", id), zap.Error(err))
		}
	}

	return &dto.UpdateProjectResponse{
		Project:     dto.ToProjectResponse(project),
		ShiftedDays: delta,
		ShiftedRows: shifted,
	}, nil
}

// baseDateDelta is newBase minus the start date of the earliest row, or 0 when no row has a start date
func baseDateDelta(ctx context.Context, schedules repository.ScheduleRepository, projectID uint, newBase string) (int, error) {
	earliest, err := schedules.FindEarliestStart(ctx, projectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return datecalc.DaysBetween(*earliest.StartDate, newBase)
}

func sameDate(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeleteProject removes the project and everything it owns, schedules first, in one transaction
func (s *projectServiceImpl) DeleteProject(ctx context.Context, id uint) error {
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.repos.Projects.WithTx(tx).FindByID(ctx, id); err != nil {
			return notFoundOrInternal(err, "Project not found", "Failed to fetch project")
		}
		if _, err := s.repos.Schedules.WithTx(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		if err := s.repos.Comments.WithTx(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		if err := s.repos.Progress.WithTx(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		if err := s.repos.Milestones.WithTx(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		if err := s.repos.Imports.WithTx(tx).DeleteByProject(ctx, id); err != nil {
			return err
		}
		_, err := s.repos.Projects.WithTx(tx).Delete(ctx, id)
		return err
	})
	if err != nil {
		return passThrough(err, "Failed to delete project")
	}

	s.logger.Info("Project deleted", zap.Uint("project_id", id))
	return nil
}
