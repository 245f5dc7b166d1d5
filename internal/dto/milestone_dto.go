package dto

// UpsertMilestoneEstimateRequest sets or clears the estimate of a milestone row.
// A null or empty estimate_date deletes the record.
type UpsertMilestoneEstimateRequest struct {
	EstimateDate *string `json:"estimate_date" binding:"omitempty,datetime=2006-01-02"`
}

// Cleared reports whether the request removes the estimate
func (r *UpsertMilestoneEstimateRequest) Cleared() bool {
	return r.EstimateDate == nil || *r.EstimateDate == ""
}

// MilestoneEstimateResponse is an estimate together with its derived delay
type MilestoneEstimateResponse struct {
	ScheduleID   uint    `json:"schedule_id"`
	Item         string  `json:"item"`
	PlannedDate  *string `json:"planned_date"`
	EstimateDate *string `json:"estimate_date"`
	DelayDays    *int    `json:"delay_days"`
	Status       string  `json:"status,omitempty"`
	Label        string  `json:"label"`
}
