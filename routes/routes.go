package routes

import (
	"github.com/gin-gonic/gin"

	"examwatch/config"
	"examwatch/controllers"
	"examwatch/handlers"
	"examwatch/report"
)

func ExamRouter(r *gin.Engine, hub *controllers.Hub, cfg *config.Config) {
	r.GET("/", handlers.Join)
	r.GET("/dashboard", handlers.Dashboard)
	r.GET("/report", handlers.Report(cfg.LogFile, report.Options{
		ExamDuration: cfg.ExamDuration,
		MinOffline:   cfg.MinOffline,
	}))
	r.GET("/status", controllers.Status(hub.Registry()))
	r.GET("/ws", controllers.WebSocketHandler(hub))
}
