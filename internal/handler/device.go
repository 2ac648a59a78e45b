package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"smartwaste/internal/dto"
	"smartwaste/internal/logger"
	"smartwaste/internal/service"
	"smartwaste/internal/service/pipeline"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize bounds the body accepted by /predict_waste.
const MaxUploadSize = 10 << 20

// WasteDetectedHandler arms the capture flag when the sensor node sees an item.
func WasteDetectedHandler(manager *service.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		manager.NotifyArrival()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ShouldCaptureHandler answers the camera node's poll with a literal YES or NO.
func ShouldCaptureHandler(manager *service.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager.ShouldCapture() {
			c.String(http.StatusOK, "YES")
			return
		}
		c.String(http.StatusOK, "NO")
	}
}

// PredictWasteHandler classifies the raw image in the request body.
// Client input problems are 400; anything else is reported with 200 so the
// device firmware never has to branch on the status code.
func PredictWasteHandler(manager *service.Manager, defaultDeviceID string, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxUploadSize+1))
		if err != nil {
			logger.Warning("Error reading upload: %v", err)
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no image"})
			return
		}
		if len(image) > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "image too large"})
			return
		}

		result, err := manager.Classify(c.Request.Context(), image, deviceID(c, defaultDeviceID))
		if err != nil {
			var clientErr *pipeline.ClientInputError
			if errors.As(err, &clientErr) {
				logger.Warning("Rejected upload: %v", err)
				c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: clientErr.Reason})
				return
			}
			logger.Error("Classification failed: %v", err)
			c.JSON(http.StatusOK, dto.ErrorResponse{Error: "internal error"})
			return
		}

		c.JSON(http.StatusOK, dto.ClassifyResponse{
			Status:     "ok",
			ID:         result.ID,
			WasteType:  result.WasteLabel,
			Confidence: result.Confidence,
		})
	}
}

// GetWasteTypeHandler hands the latest label to the sorter and resets it.
func GetWasteTypeHandler(manager *service.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, string(manager.ConsumeWasteType()))
	}
}

func deviceID(c *gin.Context, fallback string) string {
	if id := strings.TrimSpace(c.Query("device_id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetHeader("X-Device-ID")); id != "" {
		return id
	}
	return fallback
}
