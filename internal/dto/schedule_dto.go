package dto

import (
	"time"

	"progman-api/internal/domain"
)

// ScheduleResponse is the wire shape of a schedule row
type ScheduleResponse struct {
	ID             uint      `json:"id"`
	ProjectID      uint      `json:"project_id"`
	Category       string    `json:"category"`
	Item           string    `json:"item"`
	Owner          *string   `json:"owner"`
	StartDate      *string   `json:"start_date"`
	Duration       *int      `json:"duration"`
	EndDate        *string   `json:"end_date"`
	Progress       int       `json:"progress"`
	ActualStart    *string   `json:"actual_start"`
	ActualDuration *int      `json:"actual_duration"`
	ActualEnd      *string   `json:"actual_end"`
	SortOrder      int       `json:"sort_order"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToScheduleResponse converts a domain schedule row
func ToScheduleResponse(s *domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:             s.ID,
		ProjectID:      s.ProjectID,
		Category:       s.Category,
		Item:           s.Item,
		Owner:          s.Owner,
		StartDate:      s.StartDate,
		Duration:       s.Duration,
		EndDate:        s.EndDate,
		Progress:       s.Progress,
		ActualStart:    s.ActualStart,
		ActualDuration: s.ActualDuration,
		ActualEnd:      s.ActualEnd,
		SortOrder:      s.SortOrder,
		UpdatedAt:      s.UpdatedAt,
	}
}

// ToScheduleResponses converts a list of domain schedule rows
func ToScheduleResponses(rows []*domain.Schedule) []ScheduleResponse {
	out := make([]ScheduleResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToScheduleResponse(r))
	}
	return out
}

// UpdateScheduleRequest is a shallow partial update of a schedule row.
// Absent keys keep their current value; explicit nulls clear the field.
// Derived end dates are not accepted from clients.
type UpdateScheduleRequest struct {
	Category       Nullable[string]  `json:"category,omitzero" binding:"omitempty,max=255"`
	Item           Nullable[string]  `json:"item,omitzero" binding:"omitempty,max=255"`
	Owner          Nullable[string]  `json:"owner,omitzero" binding:"omitempty,max=255"`
	StartDate      Nullable[string]  `json:"start_date,omitzero" binding:"omitempty,datetime=2006-01-02"`
	Duration       Nullable[int]     `json:"duration,omitzero" binding:"omitempty,min=0"`
	Progress       Nullable[float64] `json:"progress,omitzero"`
	ActualStart    Nullable[string]  `json:"actual_start,omitzero" binding:"omitempty,datetime=2006-01-02"`
	ActualDuration Nullable[int]     `json:"actual_duration,omitzero" binding:"omitempty,min=0"`
	SortOrder      Nullable[int]     `json:"sort_order,omitzero"`
}

// checkPresence rejects clearing category or item. Binding tags see an
// explicit null and an absent key alike, so this rule cannot be a tag.
func (r *UpdateScheduleRequest) checkPresence() error {
	if r.Category.Set && (r.Category.Value == nil || *r.Category.Value == "") {
		return errField("category", "must not be empty")
	}
	if r.Item.Set && (r.Item.Value == nil || *r.Item.Value == "") {
		return errField("item", "must not be empty")
	}
	return nil
}

// ApplyTo merges the present fields over row. It does not recompute derived fields.
func (r *UpdateScheduleRequest) ApplyTo(row *domain.Schedule) {
	if r.Category.Set && r.Category.Value != nil {
		row.Category = *r.Category.Value
	}
	if r.Item.Set && r.Item.Value != nil {
		row.Item = *r.Item.Value
	}
	if r.Owner.Set {
		row.Owner = emptyToNil(r.Owner.Value)
	}
	if r.StartDate.Set {
		row.StartDate = emptyToNil(r.StartDate.Value)
	}
	if r.Duration.Set {
		row.Duration = r.Duration.Value
	}
	if r.Progress.Set {
		row.Progress = 0
		if r.Progress.Value != nil {
			row.Progress = domain.ClampProgress(*r.Progress.Value)
		}
	}
	if r.ActualStart.Set {
		row.ActualStart = emptyToNil(r.ActualStart.Value)
	}
	if r.ActualDuration.Set {
		row.ActualDuration = r.ActualDuration.Value
	}
	if r.SortOrder.Set && r.SortOrder.Value != nil {
		row.SortOrder = *r.SortOrder.Value
	}
}

// ShiftDatesRequest shifts every row of a project by DeltaDays
type ShiftDatesRequest struct {
	DeltaDays     int  `json:"delta_days"`
	IncludeActual bool `json:"include_actual"`
}

// ShiftDatesResponse reports the applied shift
type ShiftDatesResponse struct {
	DeltaDays   int   `json:"delta_days"`
	ShiftedRows int64 `json:"shifted_rows"`
}

// ImportRow is one parsed spreadsheet row before normalization
type ImportRow struct {
	Category  string  `json:"category"`
	Item      string  `json:"item"`
	Owner     *string `json:"owner,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	Duration  *int    `json:"duration,omitempty"`
	Progress  int     `json:"progress"`
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
