package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"progman-api/internal/response"
	"progman-api/internal/service"
)

const defaultHistoryLimit = 20

type ImportHandler struct {
	importService service.ImportService
	maxSize       int64
	logger        *zap.Logger
}

func NewImportHandler(importService service.ImportService, maxSize int64, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		maxSize:       maxSize,
		logger:        logger,
	}
}

// UploadExcel godoc
// @Summary      Replace a project's schedule from a workbook
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Workbook (.xlsx or .xlsm)"
// @Param        project_id formData int true "Project ID"
// @Success      200 {object} response.SuccessResponse{data=dto.ImportResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /upload/excel [post]
func (h *ImportHandler) UploadExcel(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.PostForm("project_id"), 10, 64)
	if err != nil || projectID == 0 {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "project_id is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "file is required")
		return
	}
	if h.maxSize > 0 && fileHeader.Size > h.maxSize {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "File is too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Failed to read upload")
		return
	}

	result, err := h.importService.Import(c.Request.Context(), uint(projectID), fileHeader.Filename, data)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, result)
}

// History godoc
// @Summary      Recent uploads of a project
// @Tags         upload
// @Produce      json
// @Param        projectId path int true "Project ID"
// @Param        limit query int false "Maximum entries"
// @Success      200 {object} response.SuccessResponse{data=[]dto.ImportRecordResponse}
// @Router       /upload/history/{projectId} [get]
func (h *ImportHandler) History(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := h.importService.ListImports(c.Request.Context(), projectID, limit)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, records)
}
