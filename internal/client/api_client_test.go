package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"progman-api/internal/dto"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data, "requestId": "req-1"})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     map[string]string{"code": code, "message": message},
		"requestId": "req-2",
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAPIClient(srv.URL+"/api/", 5*time.Second, zap.NewNop())
}

func TestAPIClient_ListSchedules(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/schedules/4", r.URL.Path)
		writeEnvelope(w, http.StatusOK, []dto.ScheduleResponse{{ID: 1, ProjectID: 4, Item: "Wireframes"}})
	})

	rows, err := c.ListSchedules(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Wireframes", rows[0].Item)
}

func TestAPIClient_UpdateScheduleSendsOnlyPresentFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &fields))
		assert.Equal(t, map[string]interface{}{"duration": 5.0, "owner": nil}, fields)
		writeEnvelope(w, http.StatusOK, dto.ScheduleResponse{ID: 9})
	})

	req := &dto.UpdateScheduleRequest{Duration: dto.Some(5), Owner: dto.Null[string]()}
	row, err := c.UpdateSchedule(context.Background(), 9, req)
	require.NoError(t, err)
	assert.EqualValues(t, 9, row.ID)
}

func TestAPIClient_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/pages"):
			writeError(w, http.StatusConflict, "ALREADY_EXISTS", "page already exists")
		default:
			writeError(w, http.StatusNotFound, "NOT_FOUND", "comment page not found")
		}
	})

	_, err := c.GetComments(context.Background(), 1, "2024-05-01")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "req-2", apiErr.RequestID)
	assert.Contains(t, apiErr.Error(), "comment page not found")

	_, err = c.CreatePage(context.Background(), 1, "2024-05-01")
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
}

func TestAPIClient_GetCommentsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-05-01", r.URL.Query().Get("date"))
		writeEnvelope(w, http.StatusOK, []dto.CommentResponse{{Owner: "Design", Body: "ok"}})
	})

	comments, err := c.GetComments(context.Background(), 1, "2024-05-01")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "ok", comments[0].Body)
}

func TestAPIClient_UploadExcel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload/excel", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "3", r.FormValue("project_id"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "plan.xlsx", hdr.Filename)
		assert.Equal(t, "bytes", string(body))
		writeEnvelope(w, http.StatusOK, dto.ImportResponse{ProjectID: 3, Imported: 12})
	})

	res, err := c.UploadExcel(context.Background(), 3, "plan.xlsx", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.Equal(t, 12, res.Imported)
}

func TestAPIClient_TransportError(t *testing.T) {
	c := NewAPIClient("http://127.0.0.1:1/api", time.Second, zap.NewNop())
	_, err := c.ListProjects(context.Background())
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}
