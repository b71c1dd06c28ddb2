package middleware

import (
	"fmt"
	"net/http"

	"github.com/theredlobstercartel/tinyfeedback-sub000/limit"
	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/service"
	"github.com/theredlobstercartel/tinyfeedback-sub000/util"

	"github.com/gin-gonic/gin"
)

const projectContextKey = "project"

// ProjectFromContext returns the project the API-key middleware resolved.
func ProjectFromContext(c *gin.Context) *model.Project {
	v, exists := c.Get(projectContextKey)
	if !exists {
		return nil
	}
	return v.(*model.Project)
}

// WidgetAuth authenticates widget submissions: rate limit by client IP,
// then resolve the project from X-API-Key. Errors use the flat widget
// envelope. The attempt is recorded after the handler runs, and only
// when the request did not end in a server error.
func WidgetAuth(projects *service.ProjectService, store limit.Store, maxAttempts int) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.ClientIP()
		res := store.Check(clientKey)
		setRateLimitHeaders(c, maxAttempts, res)
		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": util.MsgTooManyRequests})
			return
		}

		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": util.MsgAPIKeyRequired})
			return
		}

		project, err := projects.GetProjectByAPIKey(apiKey)
		if err != nil {
			util.WidgetError(c, http.StatusInternalServerError, util.MsgInternalError, err)
			c.Abort()
			return
		}
		if project == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": util.MsgInvalidAPIKey})
			return
		}

		c.Set(projectContextKey, project)
		c.Next()

		if c.Writer.Status() < http.StatusInternalServerError {
			store.Record(clientKey)
		}
	}
}

// APIAuth is the versioned-API variant: rate limit by API key, errors in
// the structured envelope.
func APIAuth(projects *service.ProjectService, store limit.Store, maxAttempts int) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   util.APIError{Code: util.CodeUnauthorized, Message: util.MsgAPIKeyRequired},
			})
			return
		}

		res := store.Check(apiKey)
		setRateLimitHeaders(c, maxAttempts, res)
		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   util.APIError{Code: util.CodeRateLimited, Message: util.MsgTooManyRequests},
			})
			return
		}

		project, err := projects.GetProjectByAPIKey(apiKey)
		if err != nil {
			util.APIErrorResponse(c, http.StatusInternalServerError, util.CodeInternalError, util.MsgInternalError, err)
			c.Abort()
			return
		}
		if project == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   util.APIError{Code: util.CodeUnauthorized, Message: util.MsgInvalidAPIKey},
			})
			return
		}

		c.Set(projectContextKey, project)
		c.Next()

		if c.Writer.Status() < http.StatusInternalServerError {
			store.Record(apiKey)
		}
	}
}

func setRateLimitHeaders(c *gin.Context, limitMax int, res limit.Result) {
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limitMax))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", res.ResetAt.Unix()))
}
