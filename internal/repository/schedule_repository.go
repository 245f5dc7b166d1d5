package repository

import (
	"context"

	"gorm.io/gorm"

	"progman-api/internal/domain"
)

// ScheduleRepository defines the interface for schedule row data access
type ScheduleRepository interface {
	FindByProject(ctx context.Context, projectID uint) ([]*domain.Schedule, error)
	FindByProjectAndCategory(ctx context.Context, projectID uint, category string) ([]*domain.Schedule, error)
	FindByID(ctx context.Context, id uint) (*domain.Schedule, error)
	FindEarliestStart(ctx context.Context, projectID uint) (*domain.Schedule, error)
	Save(ctx context.Context, row *domain.Schedule) error
	CreateBatch(ctx context.Context, rows []*domain.Schedule) error
	DeleteByProject(ctx context.Context, projectID uint) (int64, error)
	Count(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) ScheduleRepository
}

type scheduleRepositoryImpl struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new instance of ScheduleRepository
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepositoryImpl{db: db}
}

func (r *scheduleRepositoryImpl) WithTx(tx *gorm.DB) ScheduleRepository {
	return &scheduleRepositoryImpl{db: tx}
}

// FindByProject returns every row of the project ordered by sort_order
func (r *scheduleRepositoryImpl) FindByProject(ctx context.Context, projectID uint) ([]*domain.Schedule, error) {
	var rows []*domain.Schedule
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scheduleRepositoryImpl) FindByProjectAndCategory(ctx context.Context, projectID uint, category string) ([]*domain.Schedule, error) {
	var rows []*domain.Schedule
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND category = ?", projectID, category).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scheduleRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Schedule, error) {
	var row domain.Schedule
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindEarliestStart returns the first row in display order that has a start date.
// It returns gorm.ErrRecordNotFound when no row has one.
func (r *scheduleRepositoryImpl) FindEarliestStart(ctx context.Context, projectID uint) (*domain.Schedule, error) {
	var row domain.Schedule
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND start_date IS NOT NULL AND start_date <> ''", projectID).
		Order("sort_order ASC").
		Order("id ASC").
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Save writes every column of row, including cleared ones
func (r *scheduleRepositoryImpl) Save(ctx context.Context, row *domain.Schedule) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *scheduleRepositoryImpl) CreateBatch(ctx context.Context, rows []*domain.Schedule) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

func (r *scheduleRepositoryImpl) DeleteByProject(ctx context.Context, projectID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.Schedule{})
	return result.RowsAffected, result.Error
}

func (r *scheduleRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Schedule{}).Count(&n).Error
	return n, err
}
