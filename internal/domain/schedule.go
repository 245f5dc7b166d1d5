package domain

import (
	"math"
	"time"

	"progman-api/internal/datecalc"
)

// UncategorizedLabel is the category given to imported rows without one.
const UncategorizedLabel = "uncategorized"

// Schedule is one row of a project's Gantt-like schedule table.
// EndDate and ActualEnd are derived and are recomputed by Normalize on every write.
type Schedule struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProjectID      uint      `gorm:"not null;index:idx_schedules_project_sort,priority:1" json:"project_id"`
	Category       string    `gorm:"type:varchar(255);not null" json:"category"`
	Item           string    `gorm:"type:varchar(255);not null" json:"item"`
	Owner          *string   `gorm:"type:varchar(255)" json:"owner"`
	StartDate      *string   `gorm:"type:varchar(10)" json:"start_date"`
	Duration       *int      `json:"duration"`
	EndDate        *string   `gorm:"type:varchar(10)" json:"end_date"`
	Progress       int       `gorm:"not null;default:0" json:"progress"`
	ActualStart    *string   `gorm:"type:varchar(10)" json:"actual_start"`
	ActualDuration *int      `json:"actual_duration"`
	ActualEnd      *string   `gorm:"type:varchar(10)" json:"actual_end"`
	SortOrder      int       `gorm:"not null;default:0;index:idx_schedules_project_sort,priority:2" json:"sort_order"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for Schedule
func (Schedule) TableName() string {
	return "schedules"
}

// Normalize enforces the row invariants: zero durations become unset,
// progress is clamped to 0..100 and both end dates are derived from their inputs.
func (s *Schedule) Normalize() {
	s.Duration = normalizeDuration(s.Duration)
	s.ActualDuration = normalizeDuration(s.ActualDuration)
	s.Progress = ClampProgress(float64(s.Progress))
	s.EndDate = datecalc.EndDateOf(s.StartDate, s.Duration)
	s.ActualEnd = datecalc.EndDateOf(s.ActualStart, s.ActualDuration)
}

// ClampProgress rounds p and clamps it to 0..100.
func ClampProgress(p float64) int {
	if math.IsNaN(p) {
		return 0
	}
	r := int(math.Round(p))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

func normalizeDuration(d *int) *int {
	if d == nil || *d == 0 {
		return nil
	}
	return d
}
