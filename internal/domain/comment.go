package domain

import "time"

// OverallOwner is the owner key of the "overall report" pseudo-section.
const OverallOwner = "__OVERALL__"

// CommentPage is a day's status-report snapshot of a project.
type CommentPage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;uniqueIndex:uq_comment_pages_project_date,priority:1" json:"project_id"`
	CommentDate string    `gorm:"type:varchar(10);not null;uniqueIndex:uq_comment_pages_project_date,priority:2" json:"comment_date"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for CommentPage
func (CommentPage) TableName() string {
	return "comment_pages"
}

// Comment is the free-text status of one section (owner) on one page.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;uniqueIndex:uq_comments_project_owner_date,priority:1" json:"project_id"`
	Owner       string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_comments_project_owner_date,priority:2" json:"owner"`
	CommentDate string    `gorm:"type:varchar(10);not null;uniqueIndex:uq_comments_project_owner_date,priority:3" json:"comment_date"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
