package util

import (
	"log"

	"github.com/gin-gonic/gin"
)

// Error codes shared by the versioned API envelope.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeRateLimited     = "RATE_LIMITED"
	CodeLimitReached    = "LIMIT_REACHED"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Common user-facing messages.
const (
	MsgAPIKeyRequired      = "API Key is required"
	MsgInvalidAPIKey       = "Invalid API Key"
	MsgProjectNotFound     = "Project not found"
	MsgDomainNotAuthorized = "Domain not authorized"
	MsgTooManyRequests     = "Too many requests, please try again later"
	MsgFailedToSave        = "Failed to save feedback"
	MsgInternalError       = "Internal server error"
)

// APIError is the structured error body of the versioned API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WidgetError writes the legacy widget envelope: a flat error string.
// Existing embeds parse this shape, so it must not change.
func WidgetError(c *gin.Context, statusCode int, userMessage string, detailedError error) {
	if detailedError != nil {
		log.Printf("[ERROR] %s: %v", userMessage, detailedError)
	}
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// WidgetValidationError keeps the flat envelope but attaches the
// field-keyed messages so the widget can highlight inputs.
func WidgetValidationError(c *gin.Context, errors map[string]string) {
	c.JSON(400, gin.H{"error": "Validation failed", "details": errors})
}

// APIErrorResponse writes the versioned envelope: {success, error:{code,message}}.
func APIErrorResponse(c *gin.Context, statusCode int, code, userMessage string, detailedError error) {
	if detailedError != nil {
		log.Printf("[ERROR] %s: %v", userMessage, detailedError)
	}
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   APIError{Code: code, Message: userMessage},
	})
}

// APIValidationError writes the versioned envelope with per-field details.
func APIValidationError(c *gin.Context, errors map[string]string) {
	c.JSON(400, gin.H{
		"success": false,
		"error":   APIError{Code: CodeValidationError, Message: "Validation failed"},
		"details": errors,
	})
}
