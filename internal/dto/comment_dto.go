package dto

import (
	"time"

	"progman-api/internal/domain"
)

// CreateCommentPageRequest represents the request to open a dated comment page
type CreateCommentPageRequest struct {
	CommentDate string `json:"comment_date" binding:"required,datetime=2006-01-02" example:"2024-05-01"`
}

// CommentPageResponse represents a comment page
type CommentPageResponse struct {
	ID          uint      `json:"id"`
	ProjectID   uint      `json:"project_id"`
	CommentDate string    `json:"comment_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToCommentPageResponse converts a domain comment page
func ToCommentPageResponse(p *domain.CommentPage) CommentPageResponse {
	return CommentPageResponse{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		CommentDate: p.CommentDate,
		CreatedAt:   p.CreatedAt,
	}
}

// CommentPagesResponse lists the pages of a project, newest first
type CommentPagesResponse struct {
	Pages      []CommentPageResponse `json:"pages"`
	LatestDate *string               `json:"latest_date"`
}

// UpsertCommentRequest writes the body of (project_id, owner, comment_date).
// The page for that date is created when it does not exist yet.
// An empty comment_date means today.
type UpsertCommentRequest struct {
	ProjectID   uint   `json:"project_id" binding:"required" example:"1"`
	Owner       string `json:"owner" binding:"required,max=255" example:"Design"`
	Body        string `json:"body" example:"Mockups reviewed"`
	CommentDate string `json:"comment_date,omitempty" binding:"omitempty,datetime=2006-01-02" example:"2024-05-01"`
}

// CommentResponse represents one section comment
type CommentResponse struct {
	ID          uint      `json:"id"`
	ProjectID   uint      `json:"project_id"`
	Owner       string    `json:"owner"`
	CommentDate string    `json:"comment_date"`
	Body        string    `json:"body"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToCommentResponses converts domain comments
func ToCommentResponses(comments []*domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentResponse{
			ID:          c.ID,
			ProjectID:   c.ProjectID,
			Owner:       c.Owner,
			CommentDate: c.CommentDate,
			Body:        c.Body,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	return out
}

// UpsertProgressRequest writes the status of (category, progress_date)
type UpsertProgressRequest struct {
	Category     string `json:"category" binding:"required,max=255" example:"Design"`
	ProgressDate string `json:"progress_date" binding:"required,datetime=2006-01-02" example:"2024-05-01"`
	Status       string `json:"status" binding:"required,oneof=smooth caution danger idle" example:"caution"`
}

// CategoryProgressResponse represents a category status flag
type CategoryProgressResponse struct {
	ID           uint      `json:"id"`
	ProjectID    uint      `json:"project_id"`
	Category     string    `json:"category"`
	ProgressDate string    `json:"progress_date"`
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToCategoryProgressResponses converts domain progress records
func ToCategoryProgressResponses(list []*domain.CategoryProgress) []CategoryProgressResponse {
	out := make([]CategoryProgressResponse, 0, len(list))
	for _, p := range list {
		out = append(out, CategoryProgressResponse{
			ID:           p.ID,
			ProjectID:    p.ProjectID,
			Category:     p.Category,
			ProgressDate: p.ProgressDate,
			Status:       string(p.Status),
			UpdatedAt:    p.UpdatedAt,
		})
	}
	return out
}

// CommentSectionsResponse is the section layout of the report page
type CommentSectionsResponse struct {
	OverallKey      string   `json:"overall_key"`
	Left            []string `json:"left"`
	Right           []string `json:"right"`
	AutosaveDelayMS int64    `json:"autosave_delay_ms"`
}
