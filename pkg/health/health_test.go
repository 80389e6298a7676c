package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func readiness(t *testing.T, h HealthService) (int, Health) {
	t.Helper()
	r := gin.New()
	r.GET("/readyz", h.Readiness)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := ProvideHealth(HealthParams{Redis: rdb})

	code, body := readiness(t, h)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, statusHealthy, body.Status)
	require.Len(t, body.Deps, 1)
	require.Equal(t, "redis", body.Deps[0].Name)

	mr.Close()

	code, body = readiness(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, statusUnhealthy, body.Status)
	require.Equal(t, statusUnhealthy, body.Deps[0].Status)
}
