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
	"progman-api/internal/realtime"
	"progman-api/internal/repository"
	"progman-api/internal/response"
)

// CommentService defines the interface for comment pages, comments and category progress
type CommentService interface {
	ListPages(ctx context.Context, projectID uint) (*dto.CommentPagesResponse, error)
	CreatePage(ctx context.Context, projectID uint, req *dto.CreateCommentPageRequest) (*dto.CommentPageResponse, error)
	DeletePage(ctx context.Context, projectID uint, date string) error
	LatestPageDate(ctx context.Context, projectID uint) (*string, error)
	GetComments(ctx context.Context, projectID uint, date string) ([]dto.CommentResponse, error)
	UpsertComment(ctx context.Context, req *dto.UpsertCommentRequest) (*dto.CommentResponse, error)
	ListProgress(ctx context.Context, projectID uint, date string) ([]dto.CategoryProgressResponse, error)
	UpsertProgress(ctx context.Context, projectID uint, req *dto.UpsertProgressRequest) (*dto.CategoryProgressResponse, error)
	RefreshComments(ctx context.Context, projectID uint, date string) error
	Sections() *dto.CommentSectionsResponse
}

type commentServiceImpl struct {
	commentRepo  repository.CommentRepository
	progressRepo repository.ProgressRepository
	projectRepo  repository.ProjectRepository
	tx           repository.Transactor
	broadcaster  Broadcaster
	sections     config.CommentsConfig
	clock        Clock
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewCommentService creates a new instance of CommentService.
// A nil clock uses the system time.
func NewCommentService(
	commentRepo repository.CommentRepository,
	progressRepo repository.ProgressRepository,
	projectRepo repository.ProjectRepository,
	tx repository.Transactor,
	broadcaster Broadcaster,
	sections config.CommentsConfig,
	clock Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) CommentService {
	if clock == nil {
		clock = systemClock
	}
	return &commentServiceImpl{
		commentRepo:  commentRepo,
		progressRepo: progressRepo,
		projectRepo:  projectRepo,
		tx:           tx,
		broadcaster:  broadcaster,
		sections:     sections,
		clock:        clock,
		metrics:      m,
		logger:       logger,
	}
}

func (s *commentServiceImpl) ListPages(ctx context.Context, projectID uint) (*dto.CommentPagesResponse, error) {
	pages, err := s.commentRepo.FindPages(ctx, projectID)
	if err != nil {
		return nil, internalError("Failed to fetch comment pages", err)
	}
	out := &dto.CommentPagesResponse{Pages: make([]dto.CommentPageResponse, 0, len(pages))}
	for _, p := range pages {
		out.Pages = append(out.Pages, dto.ToCommentPageResponse(p))
	}
	if len(pages) > 0 {
		latest := pages[0].CommentDate
		out.LatestDate = &latest
	}
	return out, nil
}

// CreatePage opens the page for (projectID, date). An existing page is a conflict.
func (s *commentServiceImpl) CreatePage(ctx context.Context, projectID uint, req *dto.CreateCommentPageRequest) (*dto.CommentPageResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, notFoundOrInternal(err, "Project not found", "Failed to fetch project")
	}

	page := &domain.CommentPage{ProjectID: projectID, CommentDate: req.CommentDate}
	if err := s.commentRepo.CreatePage(ctx, page); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflictError("Comment page already exists for this date", req.CommentDate)
		}
		return nil, internalError("Failed to create comment page", err)
	}

	s.logger.Info("Comment page created",
		zap.Uint("project_id", projectID),
		zap.String("comment_date", page.CommentDate),
	)
	s.announcePage(ctx, dto.EventPageCreated, projectID, page.CommentDate)

	resp := dto.ToCommentPageResponse(page)
	return &resp, nil
}

// DeletePage removes the page together with the comments and progress flags of its date
func (s *commentServiceImpl) DeletePage(ctx context.Context, projectID uint, date string) error {
	if !datecalc.Valid(date) {
		return response.NewValidationError("date must be YYYY-MM-DD", date)
	}

	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		comments := s.commentRepo.WithTx(tx)
		n, err := comments.DeletePage(ctx, projectID, date)
		if err != nil {
			return err
		}
		if n == 0 {
			return response.NewNotFoundError("Comment page not found", date)
		}
		if _, err := comments.DeleteCommentsByDate(ctx, projectID, date); err != nil {
			return err
		}
		_, err = s.progressRepo.WithTx(tx).DeleteByDate(ctx, projectID, date)
		return err
	})
	if err != nil {
		return passThrough(err, "Failed to delete comment page")
	}

	s.logger.Info("Comment page deleted",
		zap.Uint("project_id", projectID),
		zap.String("comment_date", date),
	)
	s.announcePage(ctx, dto.EventPageDeleted, projectID, date)
	return nil
}

func (s *commentServiceImpl) LatestPageDate(ctx context.Context, projectID uint) (*string, error) {
	date, err := s.commentRepo.LatestPageDate(ctx, projectID)
	if err != nil {
		return nil, internalError("Failed to fetch latest page date", err)
	}
	return date, nil
}

// GetComments returns the comments of one page, or of every page when date is empty.
// A date without a page is NOT_FOUND so callers can tell it apart from a failed fetch.
func (s *commentServiceImpl) GetComments(ctx context.Context, projectID uint, date string) ([]dto.CommentResponse, error) {
	if date != "" {
		if !datecalc.Valid(date) {
			return nil, response.NewValidationError("date must be YYYY-MM-DD", date)
		}
		if _, err := s.commentRepo.FindPage(ctx, projectID, date); err != nil {
			return nil, notFoundOrInternal(err, "Comment page not found", "Failed to fetch comment page")
		}
	}

	comments, err := s.commentRepo.FindComments(ctx, projectID, date)
	if err != nil {
		return nil, internalError("Failed to fetch comments", err)
	}
	return dto.ToCommentResponses(comments), nil
}

// UpsertComment writes the body of one section. The page for the date is
// created in the same transaction when it does not exist yet, and that
// creation is announced to the project room.
func (s *commentServiceImpl) UpsertComment(ctx context.Context, req *dto.UpsertCommentRequest) (*dto.CommentResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.projectRepo.FindByID(ctx, req.ProjectID); err != nil {
		return nil, notFoundOrInternal(err, "Project not found", "Failed to fetch project")
	}

	date := req.CommentDate
	if date == "" {
		date = datecalc.Format(s.clock())
	}

	comment := &domain.Comment{
		ProjectID:   req.ProjectID,
		Owner:       req.Owner,
		CommentDate: date,
		Body:        req.Body,
	}
	var created bool
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		comments := s.commentRepo.WithTx(tx)
		var err error
		if created, err = comments.EnsurePage(ctx, req.ProjectID, date); err != nil {
			return err
		}
		return comments.UpsertComment(ctx, comment)
	})
	if err != nil {
		return nil, internalError("Failed to save comment", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementCommentUpserted()
	}
	s.logger.Debug("Comment saved",
		zap.Uint("project_id", req.ProjectID),
		zap.String("owner", req.Owner),
		zap.String("comment_date", date),
		zap.Bool("page_created", created),
	)

	if created {
		s.announcePage(ctx, dto.EventPageCreated, req.ProjectID, date)
	}

	all, err := s.commentRepo.FindComments(ctx, req.ProjectID, date)
	if err != nil {
		return nil, internalError("Failed to fetch comments", err)
	}
	list := dto.ToCommentResponses(all)
	s.broadcast(ctx, realtime.CommentRoom(req.ProjectID, date), dto.EventCommentsUpdated,
		dto.CommentsUpdatedPayload{Date: date, Comments: list})

	for i := range list {
		if list[i].Owner == req.Owner {
			return &list[i], nil
		}
	}
	return nil, internalError("Failed to fetch comment", errors.New("saved comment not found"))
}

func (s *commentServiceImpl) ListProgress(ctx context.Context, projectID uint, date string) ([]dto.CategoryProgressResponse, error) {
	if !datecalc.Valid(date) {
		return nil, response.NewValidationError("date must be YYYY-MM-DD", date)
	}
	list, err := s.progressRepo.FindByDate(ctx, projectID, date)
	if err != nil {
		return nil, internalError("Failed to fetch category progress", err)
	}
	return dto.ToCategoryProgressResponses(list), nil
}

func (s *commentServiceImpl) UpsertProgress(ctx context.Context, projectID uint, req *dto.UpsertProgressRequest) (*dto.CategoryProgressResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, notFoundOrInternal(err, "Project not found", "Failed to fetch project")
	}

	record := &domain.CategoryProgress{
		ProjectID:    projectID,
		Category:     req.Category,
		ProgressDate: req.ProgressDate,
		Status:       domain.ProgressStatus(req.Status),
	}
	if err := s.progressRepo.Upsert(ctx, record); err != nil {
		return nil, internalError("Failed to save category progress", err)
	}

	all, err := s.ListProgress(ctx, projectID, req.ProgressDate)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, realtime.CommentRoom(projectID, req.ProgressDate), dto.EventProgressUpdated,
		dto.ProgressUpdatedPayload{Date: req.ProgressDate, ProgressList: all})

	for i := range all {
		if all[i].Category == req.Category {
			return &all[i], nil
		}
	}
	return nil, internalError("Failed to fetch category progress", errors.New("saved progress not found"))
}

// RefreshComments re-sends the comments and progress of a page to its room
func (s *commentServiceImpl) RefreshComments(ctx context.Context, projectID uint, date string) error {
	if !datecalc.Valid(date) {
		return response.NewValidationError("date must be YYYY-MM-DD", date)
	}
	comments, err := s.commentRepo.FindComments(ctx, projectID, date)
	if err != nil {
		return internalError("Failed to fetch comments", err)
	}
	progress, err := s.ListProgress(ctx, projectID, date)
	if err != nil {
		return err
	}

	room := realtime.CommentRoom(projectID, date)
	if err := s.broadcaster.Broadcast(ctx, room, dto.EventCommentsUpdated,
		dto.CommentsUpdatedPayload{Date: date, Comments: dto.ToCommentResponses(comments)}); err != nil {
		return err
	}
	return s.broadcaster.Broadcast(ctx, room, dto.EventProgressUpdated,
		dto.ProgressUpdatedPayload{Date: date, ProgressList: progress})
}

func (s *commentServiceImpl) Sections() *dto.CommentSectionsResponse {
	left := s.sections.LeftSections
	if left == nil {
		left = []string{}
	}
	right := s.sections.RightSections
	if right == nil {
		right = []string{}
	}
	return &dto.CommentSectionsResponse{
		OverallKey:      s.sections.OverallKey,
		Left:            left,
		Right:           right,
		AutosaveDelayMS: s.sections.AutosaveDelay.Milliseconds(),
	}
}

func (s *commentServiceImpl) announcePage(ctx context.Context, event string, projectID uint, date string) {
	s.broadcast(ctx, realtime.ProjectRoom(projectID), event,
		dto.CommentPageEventPayload{ProjectID: projectID, CommentDate: date})
}

func (s *commentServiceImpl) broadcast(ctx context.Context, room, event string, payload interface{}) {
	if err := s.broadcaster.Broadcast(ctx, room, event, payload); err != nil {
		s.logger.Warn("Failed to broadcast",
			zap.String("room", room),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
