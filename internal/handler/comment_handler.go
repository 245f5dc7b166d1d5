package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"progman-api/internal/dto"
	"progman-api/internal/response"
	"progman-api/internal/service"
)

type CommentHandler struct {
	commentService service.CommentService
	logger         *zap.Logger
}

func NewCommentHandler(commentService service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// Sections godoc
// @Summary      Report section layout
// @Tags         comments
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.CommentSectionsResponse}
// @Router       /comments/sections [get]
func (h *CommentHandler) Sections(c *gin.Context) {
	response.SendSuccess(c, http.StatusOK, h.commentService.Sections())
}

// ListPages godoc
// @Summary      Comment pages of a project, newest first
// @Tags         comments
// @Produce      json
// @Param        projectId path int true "Project ID"
// @Success      200 {object} response.SuccessResponse{data=dto.CommentPagesResponse}
// @Router       /comments/{projectId}/pages [get]
func (h *CommentHandler) ListPages(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	pages, err := h.commentService.ListPages(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, pages)
}

// CreatePage godoc
// @Summary      Open a comment page
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        projectId path int true "Project ID"
// @Param        request body dto.CreateCommentPageRequest true "Page"
// @Success      201 {object} response.SuccessResponse{data=dto.CommentPageResponse}
// @Failure      409 {object} response.ErrorResponse "Page already exists"
// @Router       /comments/{projectId}/pages [post]
func (h *CommentHandler) CreatePage(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	var req dto.CreateCommentPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, bindErrorMessage(err))
		return
	}

	page, err := h.commentService.CreatePage(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, page)
}

// DeletePage godoc
// @Summary      Delete a comment page with its comments
// @Tags         comments
// @Param        projectId path int true "Project ID"
// @Param        date path string true "Page date (YYYY-MM-DD)"
// @Success      200 {object} response.SuccessResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /comments/{projectId}/pages/{date} [delete]
func (h *CommentHandler) DeletePage(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	date := c.Param("date")
	if err := h.commentService.DeletePage(c.Request.Context(), projectID, date); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, gin.H{"comment_date": date, "deleted": true})
}

// GetComments godoc
// @Summary      Comments of a page
// @Description  Without date every comment of the project is returned. A date without a page is 404.
// @Tags         comments
// @Produce      json
// @Param        projectId path int true "Project ID"
// @Param        date query string false "Page date (YYYY-MM-DD)"
// @Success      200 {object} response.SuccessResponse{data=[]dto.CommentResponse}
// @Failure      404 {object} response.ErrorResponse
// @Router       /comments/{projectId} [get]
func (h *CommentHandler) GetComments(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	comments, err := h.commentService.GetComments(c.Request.Context(), projectID, c.Query("date"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, comments)
}

// UpsertComment godoc
// @Summary      Save a section comment
// @Description  Creates the page for comment_date when it does not exist yet
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        request body dto.UpsertCommentRequest true "Comment"
// @Success      200 {object} response.SuccessResponse{data=dto.CommentResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /comments [post]
func (h *CommentHandler) UpsertComment(c *gin.Context) {
	var req dto.UpsertCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, bindErrorMessage(err))
		return
	}

	comment, err := h.commentService.UpsertComment(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, comment)
}

// ListProgress godoc
// @Summary      Category progress flags of a date
// @Tags         comments
// @Produce      json
// @Param        projectId path int true "Project ID"
// @Param        date query string true "Page date (YYYY-MM-DD)"
// @Success      200 {object} response.SuccessResponse{data=[]dto.CategoryProgressResponse}
// @Router       /comments/{projectId}/progress [get]
func (h *CommentHandler) ListProgress(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	list, err := h.commentService.ListProgress(c.Request.Context(), projectID, c.Query("date"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, list)
}

// UpsertProgress godoc
// @Summary      Set a category progress flag
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        projectId path int true "Project ID"
// @Param        request body dto.UpsertProgressRequest true "Progress"
// @Success      200 {object} response.SuccessResponse{data=dto.CategoryProgressResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /comments/{projectId}/progress [put]
func (h *CommentHandler) UpsertProgress(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	var req dto.UpsertProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, bindErrorMessage(err))
		return
	}

	progress, err := h.commentService.UpsertProgress(c.Request.Context(), projectID, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, progress)
}
