package handler

import (
	"net/http"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/middleware"
	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/service"
	"github.com/theredlobstercartel/tinyfeedback-sub000/util"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// WidgetHandler serves the legacy widget intake endpoint. Its error
// envelope is a flat {"error": "..."} that existing embeds parse.
type WidgetHandler struct {
	projects  *service.ProjectService
	feedbacks *service.FeedbackService
	notifier  service.Notifier
}

func NewWidgetHandler(projects *service.ProjectService, feedbacks *service.FeedbackService, notifier service.Notifier) *WidgetHandler {
	return &WidgetHandler{
		projects:  projects,
		feedbacks: feedbacks,
		notifier:  notifier,
	}
}

// SubmitFeedback runs the intake pipeline for a widget submission. Rate
// limiting and API-key auth already happened in middleware; the stages
// here are origin check, payload validation, quota check, insert,
// counter update.
func (h *WidgetHandler) SubmitFeedback(c *gin.Context) {
	project := middleware.ProjectFromContext(c)
	if project == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": util.MsgInvalidAPIKey})
		return
	}

	var req model.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	// old embeds send the project id in the body; it has to agree with
	// the key that authenticated the request
	if req.ProjectID != 0 && req.ProjectID != project.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": util.MsgProjectNotFound})
		return
	}

	// custom domain restriction is a pro feature on the widget surface
	if project.IsPro() {
		domains := h.projects.AllowedDomains(project)
		if !service.OriginAllowed(c.GetHeader("Origin"), c.GetHeader("Referer"), domains) {
			c.JSON(http.StatusForbidden, gin.H{"error": util.MsgDomainNotAuthorized})
			return
		}
	}

	if errs := service.ValidateFeedbackPayload(&req); len(errs) > 0 {
		util.WidgetValidationError(c, errs)
		return
	}

	now := time.Now()
	quota := h.projects.CheckQuota(project, now)
	if !quota.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":         "Monthly feedback limit reached",
			"code":          util.CodeLimitReached,
			"current_count": quota.EffectiveMonthly,
			"limit":         quota.Limit,
			"upgrade_url":   quota.UpgradeURL,
		})
		return
	}

	feedback := service.BuildFeedback(project.ID, &req, now)
	if err := h.feedbacks.CreateFeedback(feedback); err != nil {
		util.WidgetError(c, http.StatusInternalServerError, util.MsgFailedToSave, err)
		return
	}

	// counters only move after the row is saved; a failed increment is
	// logged and tolerated
	if err := h.projects.RecordFeedback(project, now); err != nil {
		log.WithError(err).WithField("project_id", project.ID).Error("failed to record feedback counters")
	}

	go h.notifier.NotifyNewFeedback(project, feedback)

	resp := gin.H{"success": true, "data": feedback}
	if quota.IsWarning {
		resp["warning"] = gin.H{
			"message":       "You are approaching your monthly feedback limit",
			"current_count": project.MonthlyFeedbacksCount,
			"limit":         quota.Limit,
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// Preflight answers the widget's CORS preflight.
func (h *WidgetHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
