package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduleImport records one spreadsheet upload that replaced a project's schedule.
type ScheduleImport struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProjectID uint           `gorm:"not null;index:idx_schedule_imports_project_id" json:"project_id"`
	FileName  string         `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey string         `gorm:"type:varchar(512)" json:"object_key"`
	Sheet     string         `gorm:"type:varchar(255)" json:"sheet"`
	Imported  int            `gorm:"not null;default:0" json:"imported"`
	Columns   datatypes.JSON `json:"columns"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for ScheduleImport
func (ScheduleImport) TableName() string {
	return "schedule_imports"
}
