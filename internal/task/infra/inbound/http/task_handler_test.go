package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DanielCochavi/task-management-system/internal/task/application"
	"github.com/DanielCochavi/task-management-system/internal/task/infra/outbound/db/inmemory"
)

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	service := application.NewTaskService(inmemory.NewTaskRepoInMemory(), nil, nil, zap.NewNop(), application.WithClock(clock))

	r := gin.New()
	RegisterTaskRoutes(r, NewTaskHandler(service, zap.NewNop()))
	RegisterHealthRoute(r)
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateTask_Returns201(t *testing.T) {
	r := setupRouter(t)

	w := doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "Write docs", "priority": "high"})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[TaskResponse](t, w)
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, "Write docs", resp.Title)
	assert.Equal(t, "HIGH", resp.Priority)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Nil(t, resp.CompletedAt)
	assert.NotContains(t, w.Body.String(), "createdDate")
}

func TestCreateTask_ValidationErrors(t *testing.T) {
	r := setupRouter(t)

	cases := []struct {
		name string
		body interface{}
	}{
		{"blank title", gin.H{"title": "   "}},
		{"missing title", gin.H{"description": "x"}},
		{"unknown priority", gin.H{"title": "x", "priority": "URGENT"}},
		{"malformed body", "not an object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/tasks", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[errorBody](t, w).Error.Message)
		})
	}
}

func TestCreateTask_DuplicateReturns409(t *testing.T) {
	r := setupRouter(t)

	require.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "Same"}).Code)
	w := doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "Same"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Error.Message, "task with title 'Same' already exists for date 2024-01-01")
}

func TestUrgentAndUpdateFlow(t *testing.T) {
	r := setupRouter(t)

	low := decode[TaskResponse](t, doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "low", "priority": "LOW"}))
	high := decode[TaskResponse](t, doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "high", "priority": "HIGH"}))

	urgent := decode[[]TaskResponse](t, doRequest(r, http.MethodGet, "/tasks/urgent", nil))
	require.Len(t, urgent, 2)
	assert.Equal(t, high.ID, urgent[0].ID)
	assert.Equal(t, low.ID, urgent[1].ID)

	// Completar la de prioridad alta
	w := doRequest(r, http.MethodPut, "/tasks/"+high.ID.String(), gin.H{"status": "done"})
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[TaskResponse](t, w)
	assert.Equal(t, "DONE", done.Status)
	assert.NotNil(t, done.CompletedAt)

	urgent = decode[[]TaskResponse](t, doRequest(r, http.MethodGet, "/tasks/urgent", nil))
	require.Len(t, urgent, 1)
	assert.Equal(t, low.ID, urgent[0].ID)

	all := decode[[]TaskResponse](t, doRequest(r, http.MethodGet, "/tasks", nil))
	assert.Len(t, all, 2)

	got := decode[TaskResponse](t, doRequest(r, http.MethodGet, "/tasks/"+high.ID.String(), nil))
	assert.Equal(t, "DONE", got.Status)
}

func TestUpdateTask_Errors(t *testing.T) {
	r := setupRouter(t)
	a := decode[TaskResponse](t, doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "A"}))
	doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "B"})

	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodPut, "/tasks/not-a-uuid", gin.H{"title": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodPut, "/tasks/"+a.ID.String(), gin.H{"status": "ARCHIVED"}).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodPut, "/tasks/"+a.ID.String(), gin.H{"title": " "}).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodPut, "/tasks/"+uuid.NewString(), gin.H{"title": "x"}).Code)
	assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodPut, "/tasks/"+a.ID.String(), gin.H{"title": "B"}).Code)
}

func TestUpdateTask_EmptyBodyIsNoop(t *testing.T) {
	r := setupRouter(t)
	a := decode[TaskResponse](t, doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "A", "description": "keep"}))

	w := doRequest(r, http.MethodPut, "/tasks/"+a.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[TaskResponse](t, w)
	assert.Equal(t, "keep", got.Description)
	assert.Equal(t, a.Title, got.Title)
}

func TestDeleteTask(t *testing.T) {
	r := setupRouter(t)
	a := decode[TaskResponse](t, doRequest(r, http.MethodPost, "/tasks", gin.H{"title": "A"}))

	assert.Equal(t, http.StatusNoContent, doRequest(r, http.MethodDelete, "/tasks/"+a.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodDelete, "/tasks/"+a.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/tasks/"+a.ID.String(), nil).Code)
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
