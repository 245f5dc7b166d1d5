package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"progman-api/internal/dto"
	"progman-api/internal/response"
	"progman-api/internal/service"
)

type ScheduleHandler struct {
	scheduleService  service.ScheduleService
	milestoneService service.MilestoneService
	logger           *zap.Logger
}

func NewScheduleHandler(scheduleService service.ScheduleService, milestoneService service.MilestoneService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService:  scheduleService,
		milestoneService: milestoneService,
		logger:           logger,
	}
}

// ListSchedules godoc
// @Summary      List the schedule of a project
// @Tags         schedules
// @Produce      json
// @Param        id path int true "Project ID"
// @Success      200 {object} response.SuccessResponse{data=[]dto.ScheduleResponse}
// @Router       /schedules/{id} [get]
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	rows, err := h.scheduleService.ListSchedules(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, rows)
}

// UpdateSchedule godoc
// @Summary      Update a schedule row
// @Description  Absent fields keep their value, null clears them. End dates are recomputed.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id path int true "Schedule row ID"
// @Param        request body dto.UpdateScheduleRequest true "Fields to change"
// @Success      200 {object} response.SuccessResponse{data=dto.ScheduleResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /schedules/{id} [put]
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, bindErrorMessage(err))
		return
	}

	row, err := h.scheduleService.UpdateSchedule(c.Request.Context(), id, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, row)
}

// ShiftDates godoc
// @Summary      Shift every row of a project
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id path int true "Project ID"
// @Param        request body dto.ShiftDatesRequest true "Shift"
// @Success      200 {object} response.SuccessResponse{data=dto.ShiftDatesResponse}
// @Failure      404 {object} response.ErrorResponse
// @Router       /schedules/{id}/shift [post]
func (h *ScheduleHandler) ShiftDates(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ShiftDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, bindErrorMessage(err))
		return
	}

	result, err := h.scheduleService.ShiftProjectDates(c.Request.Context(), projectID, req.DeltaDays, req.IncludeActual)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, result)
}

// ListMilestoneEstimates godoc
// @Summary      Milestone estimates with their delay
// @Tags         schedules
// @Produce      json
// @Param        id path int true "Project ID"
// @Success      200 {object} response.SuccessResponse{data=[]dto.MilestoneEstimateResponse}
// @Router       /schedules/{id}/milestone-estimates [get]
func (h *ScheduleHandler) ListMilestoneEstimates(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.milestoneService.ListEstimates(c.Request.Context(), projectID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, list)
}

// UpsertMilestoneEstimate godoc
// @Summary      Set or clear a milestone estimate
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id path int true "Project ID"
// @Param        scheduleId path int true "Schedule row ID"
// @Param        request body dto.UpsertMilestoneEstimateRequest true "Estimate"
// @Success      200 {object} response.SuccessResponse{data=[]dto.MilestoneEstimateResponse}
// @Failure      404 {object} response.ErrorResponse
// @Router       /schedules/{id}/milestone-estimates/{scheduleId} [put]
func (h *ScheduleHandler) UpsertMilestoneEstimate(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	scheduleID, ok := parseID(c, "scheduleId")
	if !ok {
		return
	}
	var req dto.UpsertMilestoneEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, bindErrorMessage(err))
		return
	}

	list, err := h.milestoneService.UpsertEstimate(c.Request.Context(), projectID, scheduleID, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, list)
}
