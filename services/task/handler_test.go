package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lookbook-compensation/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	enqueuer := &enqueuerMock{}
	svc, _ := newTestService(t, &sweeperMock{}, enqueuer)

	r := gin.New()
	r.Use(middleware.Error())
	RegisterRoutes(r, svc)

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	w := serve(http.MethodPost, "/v1/jobs/sweep")
	require.Equal(t, http.StatusAccepted, w.Code)
	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.Equal(t, SourceManual, job.Source)
	require.Equal(t, StatusPending, job.Status)
	require.Len(t, enqueuer.tasks, 1)

	w = serve(http.MethodGet, "/v1/jobs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, job.ID, list.Data[0].ID)

	for _, limit := range []string{"0", "101", "many"} {
		w := serve(http.MethodGet, "/v1/jobs?limit="+limit)
		require.Equal(t, http.StatusBadRequest, w.Code, limit)
	}

	enqueuer.enqueueFn = func(*asynq.Task) error { return errors.New("redis down") }
	w = serve(http.MethodPost, "/v1/jobs/sweep")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "redis down")
}
