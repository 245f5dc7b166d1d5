package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"progman-api/internal/response"
	"progman-api/internal/version"
)

// Version godoc
// @Summary      Build information
// @Tags         meta
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=version.Info}
// @Router       /version [get]
func Version(c *gin.Context) {
	response.SendSuccess(c, http.StatusOK, version.Get())
}
