package dto

import (
	"time"

	"progman-api/internal/domain"
)

// CreateProjectRequest represents the request to create a new project
type CreateProjectRequest struct {
	Name     string  `json:"name" binding:"required,max=255" example:"Model X launch"`
	BaseDate *string `json:"base_date,omitempty" binding:"omitempty,datetime=2006-01-02" example:"2024-01-10"`
}

// UpdateProjectRequest represents a partial project update.
// Changing base_date shifts every schedule row by the same number of days.
type UpdateProjectRequest struct {
	Name          Nullable[string] `json:"name,omitzero" binding:"omitempty,max=255"`
	BaseDate      Nullable[string] `json:"base_date,omitzero" binding:"omitempty,datetime=2006-01-02"`
	IncludeActual bool             `json:"include_actual,omitempty"`
}

// ProjectResponse represents the project response
type ProjectResponse struct {
	ID        uint      `json:"id" example:"1"`
	Name      string    `json:"name" example:"Model X launch"`
	BaseDate  *string   `json:"base_date" example:"2024-01-10"`
	CreatedAt time.Time `json:"created_at"`
}

// ToProjectResponse converts a domain project
func ToProjectResponse(p *domain.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		BaseDate:  p.BaseDate,
		CreatedAt: p.CreatedAt,
	}
}

// UpdateProjectResponse carries the project and the shift applied to its schedule
type UpdateProjectResponse struct {
	Project     *ProjectResponse `json:"project"`
	ShiftedDays int              `json:"shifted_days"`
	ShiftedRows int64            `json:"shifted_rows"`
}

// checkPresence rejects clearing the name. Binding tags see an explicit
// null and an absent key alike, so this rule cannot be a tag.
func (r *UpdateProjectRequest) checkPresence() error {
	if r.Name.Set && (r.Name.Value == nil || *r.Name.Value == "") {
		return errField("name", "must not be empty")
	}
	return nil
}
