package repository

import (
	"context"

	"gorm.io/gorm"

	"progman-api/internal/domain"
)

// ImportRepository defines the interface for the spreadsheet import audit trail
type ImportRepository interface {
	Create(ctx context.Context, record *domain.ScheduleImport) error
	FindByProject(ctx context.Context, projectID uint, limit int) ([]*domain.ScheduleImport, error)
	DeleteByProject(ctx context.Context, projectID uint) error
	WithTx(tx *gorm.DB) ImportRepository
}

type importRepositoryImpl struct {
	db *gorm.DB
}

// NewImportRepository creates a new instance of ImportRepository
func NewImportRepository(db *gorm.DB) ImportRepository {
	return &importRepositoryImpl{db: db}
}

func (r *importRepositoryImpl) WithTx(tx *gorm.DB) ImportRepository {
	return &importRepositoryImpl{db: tx}
}

func (r *importRepositoryImpl) Create(ctx context.Context, record *domain.ScheduleImport) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByProject returns the most recent imports first
func (r *importRepositoryImpl) FindByProject(ctx context.Context, projectID uint, limit int) ([]*domain.ScheduleImport, error) {
	var records []*domain.ScheduleImport
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *importRepositoryImpl) DeleteByProject(ctx context.Context, projectID uint) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.ScheduleImport{}).Error
}
