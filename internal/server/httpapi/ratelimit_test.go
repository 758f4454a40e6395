package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func limitedHandler(rps, burst int) http.Handler {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	l := newClientLimiter(rps, burst)
	engine.POST("/upload", l.middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return engine
}

func TestRateLimit_BurstThenThrottle(t *testing.T) {
	h := limitedHandler(1, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_ResponseShape(t *testing.T) {
	h := limitedHandler(1, 1)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var out struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "error", out.Status)
	require.GreaterOrEqual(t, out.RetryAfter, 1)
	require.Contains(t, out.Message, "rate limited: retry after")
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	h := limitedHandler(1, 1)

	first := httptest.NewRequest(http.MethodPost, "/upload", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	// A different client gets its own bucket.
	second := httptest.NewRequest(http.MethodPost, "/upload", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	require.Equal(t, http.StatusOK, rec.Code)
}
