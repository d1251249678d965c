package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/eventure/eventure-go/config"
	controllers "github.com/eventure/eventure-go/controllers"
	middleware "github.com/eventure/eventure-go/middleware"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	// public
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// protected
	auth := middleware.AuthMiddleware(cfg)

	events := r.Group("/events")
	events.Use(auth)
	{
		events.POST("", controllers.CreateEvent(cfg))
		events.GET("", controllers.ListEvents(cfg))
		events.GET("/:id", controllers.GetEvent(cfg))
		events.PUT("/:id", controllers.UpdateEvent(cfg))
		events.DELETE("/:id", controllers.DeleteEvent(cfg))
		events.PUT("/:id/approve", middleware.AdminOnly(), controllers.ApproveEvent(cfg))
		events.PUT("/:id/reject", middleware.AdminOnly(), controllers.RejectEvent(cfg))
		events.POST("/:id/join", controllers.JoinEvent(cfg))
		events.POST("/:id/leave", controllers.LeaveEvent(cfg))
	}

	feedback := r.Group("/feedback")
	feedback.Use(auth)
	{
		feedback.POST("/website", controllers.SubmitWebsiteFeedback(cfg))
		feedback.GET("/website", middleware.AdminOnly(), controllers.ListWebsiteFeedback(cfg))
		feedback.GET("/:eventId", controllers.ListFeedback(cfg))
		feedback.POST("/:eventId", controllers.SubmitFeedback(cfg))
		feedback.GET("/:eventId/can-submit", controllers.CanSubmitFeedback(cfg))
		feedback.PUT("/:eventId/:reviewId", controllers.UpdateFeedback(cfg))
		feedback.DELETE("/:eventId/:reviewId", controllers.DeleteFeedback(cfg))
		feedback.POST("/:eventId/:reviewId/helpful", controllers.ToggleHelpful(cfg))
		feedback.POST("/:eventId/:reviewId/report", controllers.ReportFeedback(cfg))
	}
}
