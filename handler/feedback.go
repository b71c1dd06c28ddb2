package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/middleware"
	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/service"
	"github.com/theredlobstercartel/tinyfeedback-sub000/util"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// FeedbackHandler serves the versioned public API. Responses use the
// structured {success, data, error:{code,message}, meta} envelope.
type FeedbackHandler struct {
	projects  *service.ProjectService
	feedbacks *service.FeedbackService
	notifier  service.Notifier
}

func NewFeedbackHandler(projects *service.ProjectService, feedbacks *service.FeedbackService, notifier service.Notifier) *FeedbackHandler {
	return &FeedbackHandler{
		projects:  projects,
		feedbacks: feedbacks,
		notifier:  notifier,
	}
}

// CreateFeedback is POST /api/v1/feedbacks. Unlike the widget path the
// counter update is a guarded atomic increment, so concurrent requests
// cannot overshoot the plan limit on this surface.
func (h *FeedbackHandler) CreateFeedback(c *gin.Context) {
	project := middleware.ProjectFromContext(c)
	if project == nil {
		util.APIErrorResponse(c, http.StatusUnauthorized, util.CodeUnauthorized, util.MsgInvalidAPIKey, nil)
		return
	}

	var req model.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.APIErrorResponse(c, http.StatusBadRequest, util.CodeValidationError, "Invalid request body", nil)
		return
	}

	domains := h.projects.AllowedDomains(project)
	if !service.OriginAllowed(c.GetHeader("Origin"), c.GetHeader("Referer"), domains) {
		util.APIErrorResponse(c, http.StatusForbidden, util.CodeForbidden, util.MsgDomainNotAuthorized, nil)
		return
	}

	if errs := service.ValidateFeedbackPayload(&req); len(errs) > 0 {
		util.APIValidationError(c, errs)
		return
	}

	now := time.Now()
	quota := h.projects.CheckQuota(project, now)
	if !quota.Allowed {
		h.quotaExceeded(c, project, quota)
		return
	}

	feedback := service.BuildFeedback(project.ID, &req, now)
	if err := h.feedbacks.CreateFeedback(feedback); err != nil {
		util.APIErrorResponse(c, http.StatusInternalServerError, util.CodeInternalError, util.MsgFailedToSave, err)
		return
	}

	// the guard re-checks the limit inside the UPDATE; losing the race
	// means rolling the row back and reporting the quota as exhausted
	reserved, err := h.projects.RecordFeedbackAtomic(project, now)
	if err != nil {
		log.WithError(err).WithField("project_id", project.ID).Error("failed to record feedback counters")
	} else if !reserved {
		if delErr := h.feedbacks.DeleteFeedback(project.ID, feedback.ID); delErr != nil {
			log.WithError(delErr).WithField("feedback_id", feedback.ID).Error("failed to roll back feedback past quota")
		}
		h.quotaExceeded(c, project, quota)
		return
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

func (h *FeedbackHandler) quotaExceeded(c *gin.Context, project *model.Project, quota service.QuotaStatus) {
	code := util.CodeLimitReached
	if project.IsPro() {
		code = util.CodeQuotaExceeded
	}
	c.JSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"error":   util.APIError{Code: code, Message: "Feedback limit reached for the current plan"},
		"meta": gin.H{
			"current_count": quota.EffectiveMonthly,
			"limit":         quota.Limit,
			"upgrade_url":   quota.UpgradeURL,
		},
	})
}

// ListFeedbacks is GET /api/v1/feedbacks. Cursor pagination wins over
// page/limit when both are sent; a cursor that fails to decode is
// treated as absent, never as an error.
func (h *FeedbackHandler) ListFeedbacks(c *gin.Context) {
	project := middleware.ProjectFromContext(c)
	if project == nil {
		util.APIErrorResponse(c, http.StatusUnauthorized, util.CodeUnauthorized, util.MsgInvalidAPIKey, nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	cursor, _ := util.DecodeCursor(c.Query("cursor"))

	filter := service.ListFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		From:   parseDateParam(c.Query("from")),
		To:     parseDateParam(c.Query("to")),
	}

	result, err := h.feedbacks.ListFeedbacks(project.ID, filter, cursor, page, limit)
	if err != nil {
		util.APIErrorResponse(c, http.StatusInternalServerError, util.CodeInternalError, util.MsgInternalError, err)
		return
	}

	meta := gin.H{"page": page, "limit": limit, "count": len(result.Items)}
	if result.NextCursor != "" {
		meta["next_cursor"] = result.NextCursor
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result.Items, "meta": meta})
}

// GetFeedback is GET /api/v1/feedbacks/:id.
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	project := middleware.ProjectFromContext(c)
	if project == nil {
		util.APIErrorResponse(c, http.StatusUnauthorized, util.CodeUnauthorized, util.MsgInvalidAPIKey, nil)
		return
	}

	feedback, err := h.feedbacks.GetFeedback(project.ID, c.Param("id"))
	if err != nil {
		if err == service.ErrFeedbackNotFound {
			util.APIErrorResponse(c, http.StatusNotFound, util.CodeNotFound, "Feedback not found", nil)
			return
		}
		util.APIErrorResponse(c, http.StatusInternalServerError, util.CodeInternalError, util.MsgInternalError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": feedback})
}

// UpdateFeedback is PATCH /api/v1/feedbacks/:id. Only status and
// priority are honored; unknown body fields are dropped silently, but a
// body carrying nothing usable is a 400.
func (h *FeedbackHandler) UpdateFeedback(c *gin.Context) {
	project := middleware.ProjectFromContext(c)
	if project == nil {
		util.APIErrorResponse(c, http.StatusUnauthorized, util.CodeUnauthorized, util.MsgInvalidAPIKey, nil)
		return
	}

	var req model.UpdateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.APIErrorResponse(c, http.StatusBadRequest, util.CodeValidationError, "Invalid request body", nil)
		return
	}

	if req.Status == "" && req.Priority == "" {
		util.APIErrorResponse(c, http.StatusBadRequest, util.CodeValidationError, "No updatable fields in request", nil)
		return
	}

	errs := make(map[string]string)
	if req.Status != "" && !containsString(model.FeedbackStatuses, req.Status) {
		errs["status"] = "Invalid status value"
	}
	if req.Priority != "" && !containsString(model.FeedbackPriorities, req.Priority) {
		errs["priority"] = "Invalid priority value"
	}
	if len(errs) > 0 {
		util.APIValidationError(c, errs)
		return
	}

	feedback, err := h.feedbacks.UpdateFeedback(project.ID, c.Param("id"), req, "api")
	if err != nil {
		if err == service.ErrFeedbackNotFound {
			util.APIErrorResponse(c, http.StatusNotFound, util.CodeNotFound, "Feedback not found", nil)
			return
		}
		util.APIErrorResponse(c, http.StatusInternalServerError, util.CodeInternalError, util.MsgInternalError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": feedback})
}

// DeleteFeedback is DELETE /api/v1/feedbacks/:id.
func (h *FeedbackHandler) DeleteFeedback(c *gin.Context) {
	project := middleware.ProjectFromContext(c)
	if project == nil {
		util.APIErrorResponse(c, http.StatusUnauthorized, util.CodeUnauthorized, util.MsgInvalidAPIKey, nil)
		return
	}

	if err := h.feedbacks.DeleteFeedback(project.ID, c.Param("id")); err != nil {
		if err == service.ErrFeedbackNotFound {
			util.APIErrorResponse(c, http.StatusNotFound, util.CodeNotFound, "Feedback not found", nil)
			return
		}
		util.APIErrorResponse(c, http.StatusInternalServerError, util.CodeInternalError, util.MsgInternalError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func parseDateParam(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	// malformed dates are ignored rather than failing the request
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
