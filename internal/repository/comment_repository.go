package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"progman-api/internal/domain"
)

// CommentRepository defines the interface for comment pages and their comments
type CommentRepository interface {
	CreatePage(ctx context.Context, page *domain.CommentPage) error
	EnsurePage(ctx context.Context, projectID uint, date string) (bool, error)
	FindPages(ctx context.Context, projectID uint) ([]*domain.CommentPage, error)
	FindPage(ctx context.Context, projectID uint, date string) (*domain.CommentPage, error)
	LatestPageDate(ctx context.Context, projectID uint) (*string, error)
	DeletePage(ctx context.Context, projectID uint, date string) (int64, error)
	FindComments(ctx context.Context, projectID uint, date string) ([]*domain.Comment, error)
	UpsertComment(ctx context.Context, comment *domain.Comment) error
	DeleteCommentsByDate(ctx context.Context, projectID uint, date string) (int64, error)
	DeleteByProject(ctx context.Context, projectID uint) error
	BackfillPages(ctx context.Context, now time.Time) (int64, error)
	CountPages(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) CommentRepository
}

type commentRepositoryImpl struct {
	db *gorm.DB
}

// NewCommentRepository creates a new instance of CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepositoryImpl{db: db}
}

func (r *commentRepositoryImpl) WithTx(tx *gorm.DB) CommentRepository {
	return &commentRepositoryImpl{db: tx}
}

// CreatePage inserts a page. A page that already exists yields gorm.ErrDuplicatedKey.
func (r *commentRepositoryImpl) CreatePage(ctx context.Context, page *domain.CommentPage) error {
	return r.db.WithContext(ctx).Create(page).Error
}

// EnsurePage creates the page when missing and reports whether it did
func (r *commentRepositoryImpl) EnsurePage(ctx context.Context, projectID uint, date string) (bool, error) {
	page := &domain.CommentPage{ProjectID: projectID, CommentDate: date}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "comment_date"}},
			DoNothing: true,
		}).
		Create(page)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindPages lists the project's pages, newest date first
func (r *commentRepositoryImpl) FindPages(ctx context.Context, projectID uint) ([]*domain.CommentPage, error) {
	var pages []*domain.CommentPage
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("comment_date DESC").
		Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *commentRepositoryImpl) FindPage(ctx context.Context, projectID uint, date string) (*domain.CommentPage, error) {
	var page domain.CommentPage
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND comment_date = ?", projectID, date).
		First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

// LatestPageDate returns nil when the project has no pages
func (r *commentRepositoryImpl) LatestPageDate(ctx context.Context, projectID uint) (*string, error) {
	var dates []string
	if err := r.db.WithContext(ctx).
		Model(&domain.CommentPage{}).
		Where("project_id = ?", projectID).
		Order("comment_date DESC").
		Limit(1).
		Pluck("comment_date", &dates).Error; err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	return &dates[0], nil
}

func (r *commentRepositoryImpl) DeletePage(ctx context.Context, projectID uint, date string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND comment_date = ?", projectID, date).
		Delete(&domain.CommentPage{})
	return result.RowsAffected, result.Error
}

// FindComments returns the comments of one date, or of every date when date is empty
func (r *commentRepositoryImpl) FindComments(ctx context.Context, projectID uint, date string) ([]*domain.Comment, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if date != "" {
		q = q.Where("comment_date = ?", date)
	}
	var comments []*domain.Comment
	if err := q.Order("comment_date DESC").Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// UpsertComment replaces the body of (project, owner, date) or inserts it
func (r *commentRepositoryImpl) UpsertComment(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "owner"}, {Name: "comment_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		Create(comment).Error
}

func (r *commentRepositoryImpl) DeleteCommentsByDate(ctx context.Context, projectID uint, date string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND comment_date = ?", projectID, date).
		Delete(&domain.Comment{})
	return result.RowsAffected, result.Error
}

func (r *commentRepositoryImpl) DeleteByProject(ctx context.Context, projectID uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("project_id = ?", projectID).Delete(&domain.Comment{}).Error; err != nil {
		return err
	}
	return db.Where("project_id = ?", projectID).Delete(&domain.CommentPage{}).Error
}

// BackfillPages creates the missing page of every (project, date) that has comments
func (r *commentRepositoryImpl) BackfillPages(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO comment_pages (project_id, comment_date, created_at)
		SELECT DISTINCT c.project_id, c.comment_date, ?
		FROM comments c
		WHERE NOT EXISTS (
			SELECT 1 FROM comment_pages p
			WHERE p.project_id = c.project_id AND p.comment_date = c.comment_date
		)`, now)
	return result.RowsAffected, result.Error
}

func (r *commentRepositoryImpl) CountPages(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.CommentPage{}).Count(&n).Error
	return n, err
}
