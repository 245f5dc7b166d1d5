package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progman-api/internal/domain"
)

func TestUpdateScheduleRequest_ApplyTo(t *testing.T) {
	owner := "Kim"
	start := "2024-01-01"
	dur := 5
	row := &domain.Schedule{
		ID:        1,
		Category:  "Design",
		Item:      "Mockups",
		Owner:     &owner,
		StartDate: &start,
		Duration:  &dur,
		Progress:  20,
	}

	var req UpdateScheduleRequest
	require.NoError(t, json.Unmarshal([]byte(`{"owner":null,"duration":0,"progress":57.4,"end_date":"2030-01-01"}`), &req))
	require.NoError(t, Validate(&req))
	req.ApplyTo(row)
	row.Normalize()

	assert.Nil(t, row.Owner)
	assert.Nil(t, row.Duration)
	assert.Nil(t, row.EndDate)
	assert.Equal(t, 57, row.Progress)
	assert.Equal(t, "Design", row.Category)
	require.NotNil(t, row.StartDate)
	assert.Equal(t, "2024-01-01", *row.StartDate)
}

func TestUpdateScheduleRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"success: empty patch", `{}`, ""},
		{"success: clear start date", `{"start_date":null}`, ""},
		{"success: empty string start date", `{"start_date":""}`, ""},
		{"failure: bad start date", `{"start_date":"2024/01/01"}`, "start_date must be YYYY-MM-DD"},
		{"failure: bad actual start", `{"actual_start":"tomorrow"}`, "actual_start must be YYYY-MM-DD"},
		{"failure: null item", `{"item":null}`, "item must not be empty"},
		{"failure: empty category", `{"category":""}`, "category must not be empty"},
		{"failure: negative duration", `{"duration":-1}`, "duration must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateScheduleRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			err := Validate(&req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestUpsertRequests_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     interface{}
		wantErr string
	}{
		{"success: comment", &UpsertCommentRequest{ProjectID: 1, Owner: "Design"}, ""},
		{"success: comment with date", &UpsertCommentRequest{ProjectID: 1, Owner: "Design", CommentDate: "2024-05-01"}, ""},
		{"failure: comment without project", &UpsertCommentRequest{Owner: "Design"}, "project_id is required"},
		{"failure: comment without owner", &UpsertCommentRequest{ProjectID: 1}, "owner is required"},
		{"failure: comment date", &UpsertCommentRequest{ProjectID: 1, Owner: "Design", CommentDate: "5/1"}, "comment_date must be YYYY-MM-DD"},
		{"success: progress", &UpsertProgressRequest{Category: "Design", ProgressDate: "2024-05-01", Status: "danger"}, ""},
		{"failure: progress status", &UpsertProgressRequest{Category: "Design", ProgressDate: "2024-05-01", Status: "red"}, "status must be one of smooth, caution, danger, idle"},
		{"failure: progress without date", &UpsertProgressRequest{Category: "Design", Status: "idle"}, "progress_date is required"},
		{"failure: progress without category", &UpsertProgressRequest{ProgressDate: "2024-05-01", Status: "idle"}, "category is required"},
		{"success: page", &CreateCommentPageRequest{CommentDate: "2024-05-01"}, ""},
		{"failure: page without date", &CreateCommentPageRequest{}, "comment_date is required"},
		{"failure: page on a day that does not exist", &CreateCommentPageRequest{CommentDate: "2023-02-29"}, "comment_date must be YYYY-MM-DD"},
		{"success: estimate cleared", &UpsertMilestoneEstimateRequest{EstimateDate: strPtr("")}, ""},
		{"success: estimate absent", &UpsertMilestoneEstimateRequest{}, ""},
		{"failure: estimate date", &UpsertMilestoneEstimateRequest{EstimateDate: strPtr("next week")}, "estimate_date must be YYYY-MM-DD"},
		{"failure: project name", &CreateProjectRequest{}, "name is required"},
		{"failure: project base date", &CreateProjectRequest{Name: "Launch", BaseDate: strPtr("2024/01/10")}, "base_date must be YYYY-MM-DD"},
		{"failure: project rename to null", &UpdateProjectRequest{Name: Null[string]()}, "name must not be empty"},
		{"failure: project base date update", &UpdateProjectRequest{BaseDate: Some("Jan 10")}, "base_date must be YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}

	empty := ""
	assert.True(t, (&UpsertMilestoneEstimateRequest{EstimateDate: &empty}).Cleared())
	assert.True(t, (&UpsertMilestoneEstimateRequest{}).Cleared())
}

// ShouldBindJSON runs the same tags, so handlers reject bad bodies before the service
func TestBindingTags_ShouldBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bind := func(body string, req interface{}) error {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		return c.ShouldBindJSON(req)
	}

	var progress UpsertProgressRequest
	err := bind(`{"category":"Design","progress_date":"2024-05-01","status":"green"}`, &progress)
	require.Error(t, err)
	assert.EqualError(t, DescribeValidation(err), "status must be one of smooth, caution, danger, idle")

	var update UpdateScheduleRequest
	err = bind(`{"duration":-2}`, &update)
	require.Error(t, err)
	assert.EqualError(t, DescribeValidation(err), "duration must not be negative")

	update = UpdateScheduleRequest{}
	require.NoError(t, bind(`{"owner":null,"start_date":"2024-01-01","duration":0}`, &update))

	err = bind(`{"duration":`, &UpdateScheduleRequest{})
	require.Error(t, err)
	var fe *FieldError
	assert.False(t, errors.As(DescribeValidation(err), &fe), "malformed JSON is not a field error")
}

func strPtr(s string) *string { return &s }
