package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/config"
	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/service"
	"github.com/theredlobstercartel/tinyfeedback-sub000/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DashboardHandler serves the operator surface: login plus the triage
// actions that are not part of the public API (internal notes, delete).
type DashboardHandler struct {
	db        *gorm.DB
	feedbacks *service.FeedbackService
}

func NewDashboardHandler(db *gorm.DB, feedbacks *service.FeedbackService) *DashboardHandler {
	return &DashboardHandler{db: db, feedbacks: feedbacks}
}

// Login is POST /dashboard/login.
func (h *DashboardHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var operator model.Operator
	if err := h.db.Where("email = ? AND is_active = ?", req.Email, true).First(&operator).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"operator_id": operator.ID,
		"exp":         time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString([]byte(config.AppCfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token creation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tokenString})
}

// SetInternalNotes is PUT /dashboard/projects/:project_id/feedbacks/:id/notes.
// Notes are private to operators and never change the status history.
func (h *DashboardHandler) SetInternalNotes(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	feedback, err := h.feedbacks.SetInternalNotes(uint(projectID), c.Param("id"), util.SanitizeText(req.Notes))
	if err != nil {
		if err == service.ErrFeedbackNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feedback not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"internal_notes": feedback.InternalNotes,
	})
}

// DeleteFeedback is DELETE /dashboard/projects/:project_id/feedbacks/:id.
func (h *DashboardHandler) DeleteFeedback(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("project_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	if err := h.feedbacks.DeleteFeedback(uint(projectID), c.Param("id")); err != nil {
		if err == service.ErrFeedbackNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feedback not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
