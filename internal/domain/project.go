package domain

import "time"

// Project is the root aggregate. Every other table is scoped by project_id.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	BaseDate  *string   `gorm:"type:varchar(10)" json:"base_date"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "projects"
}
