package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/syndicate/config"
	"github.com/use-agent/syndicate/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports status as "busy" while a run holds the device.
func Health(cfg *config.Config, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		if runActive.Load() {
			status = "busy"
		}

		platforms := cfg.EnabledPlatforms()
		names := make([]string, 0, len(platforms))
		for _, p := range platforms {
			names = append(names, p.Name)
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			Destinations: names,
			Version:      "0.1.0",
		})
	}
}
