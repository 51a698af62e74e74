// Package api assembles the HTTP surface.
package api

import (
	"resolveflow/backend/internal/api/handler"
	"resolveflow/backend/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter builds the gin engine with every route wired to h.
func NewRouter(h *handler.Handler, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger), middleware.Metrics())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", h.RequireAuth())
	{
		api.GET("/me", h.Me)

		api.POST("/complaint", h.RegisterComplaint)
		api.GET("/my", h.MyComplaints)
		api.GET("/list", h.ComplaintCounts)
		api.GET("/allComplaints", h.AllComplaints)
		api.GET("/complaint/:id", h.GetComplaint)
		api.PUT("/complaint/:id/assign", h.AssignComplaint)
		api.PUT("/complaint/:id/status", h.UpdateStatus)
		api.PUT("/complaint/:id/feedback", h.SubmitFeedback)

		api.GET("/workload", h.SystemWorkload)
		api.GET("/agents/:agentId/workload", h.AgentWorkload)

		users := api.Group("/users", h.RequireAdmin())
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	return r
}
