package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"progman-api/internal/domain"
)

// ProgressRepository defines the interface for category progress data access
type ProgressRepository interface {
	FindByDate(ctx context.Context, projectID uint, date string) ([]*domain.CategoryProgress, error)
	Upsert(ctx context.Context, progress *domain.CategoryProgress) error
	DeleteByDate(ctx context.Context, projectID uint, date string) (int64, error)
	DeleteByProject(ctx context.Context, projectID uint) error
	WithTx(tx *gorm.DB) ProgressRepository
}

type progressRepositoryImpl struct {
	db *gorm.DB
}

// NewProgressRepository creates a new instance of ProgressRepository
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepositoryImpl{db: db}
}

func (r *progressRepositoryImpl) WithTx(tx *gorm.DB) ProgressRepository {
	return &progressRepositoryImpl{db: tx}
}

func (r *progressRepositoryImpl) FindByDate(ctx context.Context, projectID uint, date string) ([]*domain.CategoryProgress, error) {
	var list []*domain.CategoryProgress
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND progress_date = ?", projectID, date).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Upsert replaces the status of (project, category, date) or inserts it
func (r *progressRepositoryImpl) Upsert(ctx context.Context, progress *domain.CategoryProgress) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "category"}, {Name: "progress_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(progress).Error
}

func (r *progressRepositoryImpl) DeleteByDate(ctx context.Context, projectID uint, date string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND progress_date = ?", projectID, date).
		Delete(&domain.CategoryProgress{})
	return result.RowsAffected, result.Error
}

func (r *progressRepositoryImpl) DeleteByProject(ctx context.Context, projectID uint) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.CategoryProgress{}).Error
}
