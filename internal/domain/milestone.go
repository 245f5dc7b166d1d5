package domain

import "time"

// MilestoneEstimate is the expected completion date entered for a milestone row.
// A cleared estimate is deleted rather than stored as null.
type MilestoneEstimate struct {
	ProjectID    uint      `gorm:"primaryKey;autoIncrement:false" json:"project_id"`
	ScheduleID   uint      `gorm:"primaryKey;autoIncrement:false" json:"schedule_id"`
	EstimateDate *string   `gorm:"type:varchar(10)" json:"estimate_date"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for MilestoneEstimate
func (MilestoneEstimate) TableName() string {
	return "milestone_estimates"
}
