package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/config"
	"github.com/theredlobstercartel/tinyfeedback-sub000/handler"
	"github.com/theredlobstercartel/tinyfeedback-sub000/limit"
	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/router"
	"github.com/theredlobstercartel/tinyfeedback-sub000/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testFreeLimit        = 100
	testWarningThreshold = 80
	testWidgetRateLimit  = 5
)

type testEnv struct {
	db     *gorm.DB
	engine *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppCfg.JWTSecret = "test-secret"

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Project{}, &model.Feedback{}, &model.Operator{}))
	config.Db = db

	projects := service.NewProjectService(db, service.QuotaConfig{
		FreeMonthlyLimit:     testFreeLimit,
		FreeWarningThreshold: testWarningThreshold,
		UpgradeURL:           "https://example.com/upgrade",
	})
	feedbacks := service.NewFeedbackService(db)

	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
	}))
	router.SetupRoutes(engine, router.Deps{
		DB:              db,
		Projects:        projects,
		Feedbacks:       feedbacks,
		Notifier:        service.NoopNotifier{},
		WidgetLimiter:   limit.NewMemoryStore(testWidgetRateLimit, time.Minute),
		WidgetRateLimit: testWidgetRateLimit,
		APILimiter:      limit.NewMemoryStore(1000, time.Minute),
		APIRateLimit:    1000,
		Health:          handler.NewHealthHandler(nil),
	})

	return &testEnv{db: db, engine: engine}
}

func (e *testEnv) createProject(t *testing.T, p *model.Project) *model.Project {
	t.Helper()
	if p.MonthlyFeedbacksResetAt.IsZero() {
		p.MonthlyFeedbacksResetAt = time.Now()
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func npsBody(score int) map[string]interface{} {
	return map[string]interface{}{
		"type":    "nps",
		"content": map[string]interface{}{"score": score},
	}
}
