package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"examwatch/models"
	"examwatch/presence"
)

// Status serves GET /status for the dashboard. The payload is computed
// fresh from a registry snapshot on every call; nothing here is cached,
// the snapshot alone decides who is online.
func Status(registry *presence.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := registry.Snapshot()

		resp := models.StatusResponse{Students: make([]models.StatusEntry, 0, len(snap))}
		for _, e := range snap {
			resp.Students = append(resp.Students, models.StatusEntry{
				Name:     e.Identity,
				LastPong: e.LastSeen.Format("15:04:05"),
				Online:   e.Online,
			})
		}

		c.JSON(http.StatusOK, resp)
	}
}
