package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// HealthCheckResponse represents the health check response
type HealthCheckResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Uptime    string                   `json:"uptime"`
	Services  map[string]ServiceStatus `json:"services"`
}

// ServiceStatus represents the status of a service
type ServiceStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

var startTime = time.Now()

// HealthHandler serves /health and /ping.
type HealthHandler struct {
	redisClient *redis.Client
}

func NewHealthHandler(redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{redisClient: redisClient}
}

// HealthCheck reports overall service health; a degraded database turns
// the endpoint into a 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime).String(),
		Services:  make(map[string]ServiceStatus),
	}

	dbStatus := checkDatabase()
	response.Services["database"] = dbStatus
	if dbStatus.Status != "healthy" {
		response.Status = "unhealthy"
	}

	response.Services["redis"] = h.checkRedis()

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// Ping simple ping endpoint
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong", "timestamp": time.Now()})
}

func checkDatabase() ServiceStatus {
	start := time.Now()

	var result int
	err := config.Db.Raw("SELECT 1").Scan(&result).Error

	latency := time.Since(start)
	if err != nil {
		return ServiceStatus{Status: "unhealthy", Message: err.Error()}
	}
	return ServiceStatus{Status: "healthy", Latency: latency.String()}
}

// checkRedis only degrades the report, not the overall status: the
// service runs fine on the in-memory rate-limit store.
func (h *HealthHandler) checkRedis() ServiceStatus {
	if h.redisClient == nil {
		return ServiceStatus{Status: "healthy", Message: "not configured, using in-memory rate limits"}
	}

	start := time.Now()
	if err := h.redisClient.Ping(context.Background()).Err(); err != nil {
		return ServiceStatus{Status: "degraded", Message: err.Error()}
	}
	return ServiceStatus{Status: "healthy", Latency: time.Since(start).String()}
}
