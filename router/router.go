package router

import (
	"github.com/theredlobstercartel/tinyfeedback-sub000/handler"
	"github.com/theredlobstercartel/tinyfeedback-sub000/limit"
	"github.com/theredlobstercartel/tinyfeedback-sub000/middleware"
	"github.com/theredlobstercartel/tinyfeedback-sub000/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries everything the route table needs.
type Deps struct {
	DB              *gorm.DB
	Projects        *service.ProjectService
	Feedbacks       *service.FeedbackService
	Notifier        service.Notifier
	WidgetLimiter   limit.Store
	WidgetRateLimit int
	APILimiter      limit.Store
	APIRateLimit    int
	Health          *handler.HealthHandler
}

func SetupRoutes(r *gin.Engine, deps Deps) {
	widget := handler.NewWidgetHandler(deps.Projects, deps.Feedbacks, deps.Notifier)
	feedbacks := handler.NewFeedbackHandler(deps.Projects, deps.Feedbacks, deps.Notifier)
	dashboard := handler.NewDashboardHandler(deps.DB, deps.Feedbacks)

	// Health check routes
	r.GET("/health", deps.Health.HealthCheck)
	r.GET("/ping", deps.Health.Ping)

	// Legacy widget surface: flat error envelope, rate limited by IP.
	// The CORS layer answers the preflight; the explicit OPTIONS route
	// keeps the contract visible.
	r.OPTIONS("/widget-feedback", widget.Preflight)
	r.POST("/widget-feedback",
		middleware.WidgetAuth(deps.Projects, deps.WidgetLimiter, deps.WidgetRateLimit),
		widget.SubmitFeedback)

	// Versioned public API: structured envelope, rate limited by key
	v1 := r.Group("/api/v1")
	v1.Use(middleware.APIAuth(deps.Projects, deps.APILimiter, deps.APIRateLimit))
	{
		v1.GET("/feedbacks", feedbacks.ListFeedbacks)
		v1.POST("/feedbacks", feedbacks.CreateFeedback)
		v1.GET("/feedbacks/:id", feedbacks.GetFeedback)
		v1.PATCH("/feedbacks/:id", feedbacks.UpdateFeedback)
		v1.DELETE("/feedbacks/:id", feedbacks.DeleteFeedback)
	}

	// Dashboard operator surface
	dash := r.Group("/dashboard")
	{
		dash.POST("/login", dashboard.Login)

		protected := dash.Group("/")
		protected.Use(middleware.OperatorAuth(deps.DB))
		{
			protected.PUT("/projects/:project_id/feedbacks/:id/notes", dashboard.SetInternalNotes)
			protected.DELETE("/projects/:project_id/feedbacks/:id", dashboard.DeleteFeedback)
		}
	}
}
