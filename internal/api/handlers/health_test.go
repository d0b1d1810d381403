package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/gymhub/internal/api/handlers"
	"github.com/hugh/gymhub/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ts := testutil.NewTestContext(t)

	t.Run("database only", func(t *testing.T) {
		h := handlers.NewHealthHandler(ts.DB, nil)
		rr := serve(http.HandlerFunc(h.Health), httptest.NewRequest("GET", "/health", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Services["database"])
		assert.NotContains(t, resp.Services, "redis")
	})

	t.Run("redis down is degraded", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		defer rdb.Close()

		h := handlers.NewHealthHandler(ts.DB, rdb)
		rr := serve(http.HandlerFunc(h.Health), httptest.NewRequest("GET", "/health", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "degraded", resp.Services["redis"])
	})

	t.Run("ready", func(t *testing.T) {
		h := handlers.NewHealthHandler(ts.DB, nil)
		rr := serve(http.HandlerFunc(h.Ready), httptest.NewRequest("GET", "/ready", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", rr.Body.String())
	})
}
