package dto

import "encoding/json"

// Real-time event names
const (
	EventJoinProject     = "join-project"
	EventUpdateSchedule  = "update-schedule"
	EventJoinCommentPage = "join-comment-page"
	EventLeaveComment    = "leave-comment-page"
	EventRefreshComments = "refresh-comments"

	EventSchedulesUpdated  = "schedules-updated"
	EventCommentsUpdated   = "comments-updated"
	EventProgressUpdated   = "progress-updated"
	EventPageCreated       = "comment-page-created"
	EventPageDeleted       = "comment-page-deleted"
	EventMilestonesUpdated = "milestone-estimates-updated"
	EventError             = "error"
)

// Envelope is the frame exchanged over the real-time channel
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinProjectPayload is sent with join-project
type JoinProjectPayload struct {
	ProjectID uint `json:"projectId"`
}

// CommentPageScope is sent with join-comment-page and refresh-comments
type CommentPageScope struct {
	ProjectID uint   `json:"projectId"`
	Date      string `json:"date"`
}

// UpdateSchedulePayload is sent with update-schedule. Without an id the
// server only re-broadcasts the project's snapshot.
type UpdateSchedulePayload struct {
	ProjectID uint                   `json:"projectId"`
	ID        uint                   `json:"id,omitempty"`
	Changes   *UpdateScheduleRequest `json:"changes,omitempty"`
}

// CommentsUpdatedPayload is the full comment list of one page date
type CommentsUpdatedPayload struct {
	Date     string            `json:"date"`
	Comments []CommentResponse `json:"comments"`
}

// ProgressUpdatedPayload is the full category progress list of one page date
type ProgressUpdatedPayload struct {
	Date         string                     `json:"date"`
	ProgressList []CategoryProgressResponse `json:"progressList"`
}

// CommentPageEventPayload announces page creation or deletion
type CommentPageEventPayload struct {
	ProjectID   uint   `json:"projectId"`
	CommentDate string `json:"comment_date"`
}

// MilestonesUpdatedPayload is the full estimate list of a project
type MilestonesUpdatedPayload struct {
	ProjectID uint                        `json:"projectId"`
	Estimates []MilestoneEstimateResponse `json:"estimates"`
}

// ErrorPayload is sent with error
type ErrorPayload struct {
	Message string `json:"message"`
}
