package handler

import (
	"errors"
	"net/http"

	"smartwaste/internal/dto"
	"smartwaste/internal/logger"
	"smartwaste/internal/models"
	"smartwaste/internal/service"

	"github.com/gin-gonic/gin"
)

func ListBinsHandler(manager *service.Manager, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := manager.BinStatuses(c.Request.Context())
		if err != nil {
			logger.Error("Error listing bin status: %v", err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

func GetBinHandler(manager *service.Manager, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := manager.BinStatus(c.Request.Context(), c.Param("type"))
		switch {
		case errors.Is(err, service.ErrUnknownBin):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid bin_type"})
		case err != nil:
			logger.Error("Error reading bin status %s: %v", c.Param("type"), err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		case doc == nil:
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "bin status not found"})
		default:
			c.JSON(http.StatusOK, doc)
		}
	}
}

// UpdateBinHandler merges the JSON object in the body into the bin's
// status document.
func UpdateBinHandler(manager *service.Manager, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields models.BinStatus
		if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body"})
			return
		}

		doc, err := manager.UpdateBinStatus(c.Request.Context(), c.Param("type"), fields)
		switch {
		case errors.Is(err, service.ErrUnknownBin):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid bin_type"})
		case errors.Is(err, service.ErrReadOnly):
			c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{Error: "bin status is read-only"})
		case err != nil:
			logger.Error("Error updating bin status %s: %v", c.Param("type"), err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		default:
			c.JSON(http.StatusOK, doc)
		}
	}
}
