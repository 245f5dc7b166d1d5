package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"progman-api/internal/domain"
)

// MilestoneRepository defines the interface for milestone estimate data access
type MilestoneRepository interface {
	FindByProject(ctx context.Context, projectID uint) ([]*domain.MilestoneEstimate, error)
	Upsert(ctx context.Context, estimate *domain.MilestoneEstimate) error
	Delete(ctx context.Context, projectID, scheduleID uint) (int64, error)
	DeleteByProject(ctx context.Context, projectID uint) error
	WithTx(tx *gorm.DB) MilestoneRepository
}

type milestoneRepositoryImpl struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new instance of MilestoneRepository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepositoryImpl{db: db}
}

func (r *milestoneRepositoryImpl) WithTx(tx *gorm.DB) MilestoneRepository {
	return &milestoneRepositoryImpl{db: tx}
}

func (r *milestoneRepositoryImpl) FindByProject(ctx context.Context, projectID uint) ([]*domain.MilestoneEstimate, error) {
	var list []*domain.MilestoneEstimate
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("schedule_id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *milestoneRepositoryImpl) Upsert(ctx context.Context, estimate *domain.MilestoneEstimate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "schedule_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"estimate_date", "updated_at"}),
		}).
		Create(estimate).Error
}

func (r *milestoneRepositoryImpl) Delete(ctx context.Context, projectID, scheduleID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND schedule_id = ?", projectID, scheduleID).
		Delete(&domain.MilestoneEstimate{})
	return result.RowsAffected, result.Error
}

func (r *milestoneRepositoryImpl) DeleteByProject(ctx context.Context, projectID uint) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.MilestoneEstimate{}).Error
}
