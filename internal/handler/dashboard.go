package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartwaste/internal/dto"
	"smartwaste/internal/models"
	"smartwaste/internal/service"
	"smartwaste/internal/service/dashboard"

	"github.com/gin-gonic/gin"
)

// DashboardDataHandler returns per-bin statistics.
func DashboardDataHandler(manager *service.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.DashboardData(c.Request.Context()))
	}
}

// WasteLogsHandler returns stored classification results in timestamp order.
// Optional query parameters: bin_type, start, end (RFC3339) and limit.
func WasteLogsHandler(manager *service.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, reason := parseLogFilter(c)
		if reason != "" {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: reason})
			return
		}
		c.JSON(http.StatusOK, manager.WasteLogs(c.Request.Context(), filter))
	}
}

func parseLogFilter(c *gin.Context) (models.ResultFilter, string) {
	var filter models.ResultFilter

	if name := strings.TrimSpace(c.Query("bin_type")); name != "" {
		bt, ok := dashboard.Resolve(name)
		if !ok {
			return filter, "invalid bin_type"
		}
		filter.BinTypes = dashboard.SynonymsFor(bt)
	}

	if startStr := c.Query("start"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return filter, "invalid start timestamp"
		}
		filter.Since = t.UTC()
	}

	if endStr := c.Query("end"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return filter, "invalid end timestamp"
		}
		filter.Until = t.UTC()
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return filter, "invalid limit"
		}
		filter.Limit = limit
	}

	return filter, ""
}
