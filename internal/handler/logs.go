package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"smartwaste/internal/logger"

	"github.com/gin-gonic/gin"
)

func validLevel(level string) bool {
	switch level {
	case logger.LevelInfo, logger.LevelWarning, logger.LevelError:
		return true
	}
	return false
}

// ShowLogsHandler serves {level}.log as text/plain.
func ShowLogsHandler(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		level := c.Param("level")
		if !validLevel(level) {
			c.String(http.StatusNotFound, "Unknown log level: "+level)
			return
		}

		filename := level + ".log"
		filePath := filepath.Join(logger.Dir(), filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			c.String(http.StatusNotFound, "Log file not found: "+filename)
			return
		}

		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.File(filePath)
	}
}

// ClearLogsHandler truncates {level}.log.
func ClearLogsHandler(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		level := c.Param("level")
		if !validLevel(level) {
			c.String(http.StatusNotFound, "Unknown log level: "+level)
			return
		}
		if err := logger.CleanLogs(level); err != nil {
			logger.Error("Error clearing %s log: %v", level, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
