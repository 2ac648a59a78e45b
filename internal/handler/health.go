package handler

import (
	"net/http"

	"smartwaste/internal/service"

	"github.com/gin-gonic/gin"
)

func HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Smart Waste Backend Running")
}

func HealthHandler(manager *service.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.Health())
	}
}
