package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"progman-api/internal/dto"
	"progman-api/internal/response"
	"progman-api/internal/version"
)

// APIError is a non-2xx answer decoded from the error envelope
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether the resource does not exist
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound || e.Code == response.ErrCodeNotFound
}

// IsConflict reports whether the resource already exists
func (e *APIError) IsConflict() bool {
	return e.Status == http.StatusConflict || e.Code == response.ErrCodeAlreadyExists
}

// IsNotFound reports whether err carries a not-found APIError
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}

// IsConflict reports whether err carries a conflict APIError
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsConflict()
}

// APIClient talks to the HTTP API. BaseURL includes the base path, e.g. http://localhost:8000/api.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type envelope struct {
	Data      json.RawMessage     `json:"data"`
	Error     *response.ErrorBody `json:"error"`
	RequestID string              `json:"requestId"`
}

// do sends body as JSON (or as-is for an io.Reader with contentType) and decodes data into out
func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		reader = b.buf
		contentType = b.contentType
	default:
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: env.RequestID}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

func (c *APIClient) ListProjects(ctx context.Context) ([]dto.ProjectResponse, error) {
	var out []dto.ProjectResponse
	err := c.do(ctx, http.MethodGet, "/projects", nil, &out)
	return out, err
}

func (c *APIClient) GetProject(ctx context.Context, id uint) (*dto.ProjectResponse, error) {
	var out dto.ProjectResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) CreateProject(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	var out dto.ProjectResponse
	if err := c.do(ctx, http.MethodPost, "/projects", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) UpdateProject(ctx context.Context, id uint, req dto.UpdateProjectRequest) (*dto.UpdateProjectResponse, error) {
	var out dto.UpdateProjectResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/projects/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DeleteProject(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, nil)
}

// ListSchedules returns the visible rows of a project in display order
func (c *APIClient) ListSchedules(ctx context.Context, projectID uint) ([]dto.ScheduleResponse, error) {
	var out []dto.ScheduleResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/schedules/%d", projectID), nil, &out)
	return out, err
}

// UpdateSchedule sends a partial update of one row
func (c *APIClient) UpdateSchedule(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	var out dto.ScheduleResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/schedules/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) ShiftDates(ctx context.Context, projectID uint, req dto.ShiftDatesRequest) (*dto.ShiftDatesResponse, error) {
	var out dto.ShiftDatesResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/schedules/%d/shift", projectID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) ListMilestoneEstimates(ctx context.Context, projectID uint) ([]dto.MilestoneEstimateResponse, error) {
	var out []dto.MilestoneEstimateResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/schedules/%d/milestone-estimates", projectID), nil, &out)
	return out, err
}

func (c *APIClient) UpsertMilestoneEstimate(ctx context.Context, projectID, scheduleID uint, req dto.UpsertMilestoneEstimateRequest) ([]dto.MilestoneEstimateResponse, error) {
	var out []dto.MilestoneEstimateResponse
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/schedules/%d/milestone-estimates/%d", projectID, scheduleID), req, &out)
	return out, err
}

func (c *APIClient) Sections(ctx context.Context) (*dto.CommentSectionsResponse, error) {
	var out dto.CommentSectionsResponse
	if err := c.do(ctx, http.MethodGet, "/comments/sections", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) ListPages(ctx context.Context, projectID uint) (*dto.CommentPagesResponse, error) {
	var out dto.CommentPagesResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/comments/%d/pages", projectID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePage creates the page of date. An existing page yields an APIError with IsConflict.
func (c *APIClient) CreatePage(ctx context.Context, projectID uint, date string) (*dto.CommentPageResponse, error) {
	var out dto.CommentPageResponse
	req := dto.CreateCommentPageRequest{CommentDate: date}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/comments/%d/pages", projectID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DeletePage(ctx context.Context, projectID uint, date string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d/pages/%s", projectID, url.PathEscape(date)), nil, nil)
}

// GetComments lists the comments of one page, or of every page when date is empty.
// A missing page yields an APIError with IsNotFound.
func (c *APIClient) GetComments(ctx context.Context, projectID uint, date string) ([]dto.CommentResponse, error) {
	path := fmt.Sprintf("/comments/%d", projectID)
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var out []dto.CommentResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *APIClient) UpsertComment(ctx context.Context, req dto.UpsertCommentRequest) (*dto.CommentResponse, error) {
	var out dto.CommentResponse
	if err := c.do(ctx, http.MethodPost, "/comments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) ListProgress(ctx context.Context, projectID uint, date string) ([]dto.CategoryProgressResponse, error) {
	path := fmt.Sprintf("/comments/%d/progress", projectID)
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var out []dto.CategoryProgressResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *APIClient) UpsertProgress(ctx context.Context, projectID uint, req dto.UpsertProgressRequest) (*dto.CategoryProgressResponse, error) {
	var out dto.CategoryProgressResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/comments/%d/progress", projectID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type multipartBody struct {
	buf         *bytes.Buffer
	contentType string
}

// UploadExcel uploads a workbook that replaces the project's rows
func (c *APIClient) UploadExcel(ctx context.Context, projectID uint, fileName string, file io.Reader) (*dto.ImportResponse, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.WriteField("project_id", strconv.FormatUint(uint64(projectID), 10)); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileName, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out dto.ImportResponse
	body := &multipartBody{buf: buf, contentType: w.FormDataContentType()}
	if err := c.do(ctx, http.MethodPost, "/upload/excel", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) ImportHistory(ctx context.Context, projectID uint, limit int) ([]dto.ImportRecordResponse, error) {
	var out []dto.ImportRecordResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/upload/history/%d?limit=%d", projectID, limit), nil, &out)
	return out, err
}

func (c *APIClient) Version(ctx context.Context) (*version.Info, error) {
	var out version.Info
	if err := c.do(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
