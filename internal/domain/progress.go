package domain

import "time"

// ProgressStatus is the traffic-light status of a category on a given day.
type ProgressStatus string

const (
	ProgressSmooth  ProgressStatus = "smooth"
	ProgressCaution ProgressStatus = "caution"
	ProgressDanger  ProgressStatus = "danger"
	ProgressIdle    ProgressStatus = "idle"
)

// IsValid reports whether s is one of the fixed statuses.
func (s ProgressStatus) IsValid() bool {
	switch s {
	case ProgressSmooth, ProgressCaution, ProgressDanger, ProgressIdle:
		return true
	}
	return false
}

// CategoryProgress is the status flag of one category on one page date.
type CategoryProgress struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ProjectID    uint           `gorm:"not null;uniqueIndex:uq_category_progress_project_category_date,priority:1" json:"project_id"`
	Category     string         `gorm:"type:varchar(255);not null;uniqueIndex:uq_category_progress_project_category_date,priority:2" json:"category"`
	ProgressDate string         `gorm:"type:varchar(10);not null;uniqueIndex:uq_category_progress_project_category_date,priority:3" json:"progress_date"`
	Status       ProgressStatus `gorm:"type:varchar(16);not null;default:'idle'" json:"status"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName specifies the table name for CategoryProgress
func (CategoryProgress) TableName() string {
	return "category_progress"
}
