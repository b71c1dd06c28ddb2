package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/theredlobstercartel/tinyfeedback-sub000/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiHeaders() map[string]string {
	return map[string]string{"X-API-Key": "tf_live_1"}
}

func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected structured error, got %v", body)
	return errObj["code"].(string)
}

func TestAPIMissingKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/feedbacks", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
}

func TestAPICreateFeedback(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})

	rec := env.request(t, http.MethodPost, "/api/v1/feedbacks", map[string]interface{}{
		"type": "suggestion",
		"content": map[string]interface{}{
			"title":       "Dark mode",
			"description": "Please add a dark mode to the dashboard UI",
			"category":    "feature",
		},
	}, apiHeaders())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "suggestion", data["type"])
	assert.Equal(t, "new", data["status"])

	var p model.Project
	require.NoError(t, env.db.First(&p).Error)
	assert.Equal(t, 1, p.MonthlyFeedbacksCount)
}

func TestAPICreateEnforcesDomainForFreePlan(t *testing.T) {
	env := newTestEnv(t)
	domains, _ := json.Marshal([]string{"example.com"})
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1", AllowedDomains: domains})

	headers := apiHeaders()
	headers["Origin"] = "https://malicious.com"
	rec := env.request(t, http.MethodPost, "/api/v1/feedbacks", npsBody(9), headers)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, decodeBody(t, rec)))
}

func TestAPIQuotaUsesAtomicGuard(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{
		Name:                  "acme",
		APIKey:                "tf_live_1",
		MonthlyFeedbacksCount: 100,
	})

	rec := env.request(t, http.MethodPost, "/api/v1/feedbacks", npsBody(9), apiHeaders())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "LIMIT_REACHED", errorCode(t, decodeBody(t, rec)))

	var count int64
	env.db.Model(&model.Feedback{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestAPIListPaginationWithCursor(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})

	for i := 0; i < 5; i++ {
		rec := env.request(t, http.MethodPost, "/api/v1/feedbacks", npsBody(i+1), apiHeaders())
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.request(t, http.MethodGet, "/api/v1/feedbacks?limit=2", nil, apiHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	meta := body["meta"].(map[string]interface{})
	require.Contains(t, meta, "next_cursor")
	assert.Len(t, body["data"].([]interface{}), 2)

	next := meta["next_cursor"].(string)
	rec = env.request(t, http.MethodGet, "/api/v1/feedbacks?limit=2&cursor="+url.QueryEscape(next), nil, apiHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"].([]interface{}), 2)
}

func TestAPIListIgnoresMalformedCursor(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})
	rec := env.request(t, http.MethodPost, "/api/v1/feedbacks", npsBody(9), apiHeaders())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/feedbacks?cursor=%21%21garbage", nil, apiHeaders())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"].([]interface{}), 1)
}

func createOne(t *testing.T, env *testEnv) string {
	t.Helper()
	rec := env.request(t, http.MethodPost, "/api/v1/feedbacks", npsBody(9), apiHeaders())
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestAPIPatchStatusAppendsHistory(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})
	id := createOne(t, env)

	rec := env.request(t, http.MethodPatch, "/api/v1/feedbacks/"+id,
		map[string]interface{}{"status": "analyzing"}, apiHeaders())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "analyzing", data["status"])
	history := data["status_history"].([]interface{})
	assert.Len(t, history, 2)
}

func TestAPIPatchPriorityOnlyKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})
	id := createOne(t, env)

	rec := env.request(t, http.MethodPatch, "/api/v1/feedbacks/"+id,
		map[string]interface{}{"priority": "high"}, apiHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "high", data["priority"])
	history := data["status_history"].([]interface{})
	assert.Len(t, history, 1)
}

func TestAPIPatchUnknownFieldsOnly(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})
	id := createOne(t, env)

	// unknown fields are dropped; nothing usable remains, so 400
	rec := env.request(t, http.MethodPatch, "/api/v1/feedbacks/"+id,
		map[string]interface{}{"title": "new title", "nps_score": 3}, apiHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, decodeBody(t, rec)))
}

func TestAPIPatchInvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})
	id := createOne(t, env)

	rec := env.request(t, http.MethodPatch, "/api/v1/feedbacks/"+id,
		map[string]interface{}{"status": "bogus"}, apiHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIGetAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})
	id := createOne(t, env)

	rec := env.request(t, http.MethodGet, "/api/v1/feedbacks/"+id, nil, apiHeaders())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/v1/feedbacks/"+id, nil, apiHeaders())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/feedbacks/"+id, nil, apiHeaders())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, decodeBody(t, rec)))
}

func TestAPIKeyScopesProjects(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})
	env.createProject(t, &model.Project{Name: "other", APIKey: "tf_live_2"})
	id := createOne(t, env)

	rec := env.request(t, http.MethodGet, "/api/v1/feedbacks/"+id, nil,
		map[string]string{"X-API-Key": "tf_live_2"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "feedback of one project is invisible to another")

	rec = env.request(t, http.MethodGet, "/api/v1/feedbacks", nil,
		map[string]string{"X-API-Key": "tf_live_2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["data"])
}

func TestAPIRateLimitHeadersPresent(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t, &model.Project{Name: "acme", APIKey: "tf_live_1"})

	rec := env.request(t, http.MethodGet, "/api/v1/feedbacks", nil, apiHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		assert.NotEmpty(t, rec.Header().Get(h), fmt.Sprintf("missing %s", h))
	}
}
