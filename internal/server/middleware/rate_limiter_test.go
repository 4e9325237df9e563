package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryWindow mimics the Lua script in memory.
type memoryWindow struct {
	hits map[string][]int64
	err  error
	keys []string
}

func (m *memoryWindow) RunScript(_ context.Context, _ *goredis.Script, keys []string, args ...interface{}) (interface{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.hits == nil {
		m.hits = map[string][]int64{}
	}
	key := keys[0]
	m.keys = append(m.keys, key)
	now := args[0].(int64)
	window := args[1].(int64)
	limit := int64(args[2].(int))

	var kept []int64
	for _, ts := range m.hits[key] {
		if ts > now-window {
			kept = append(kept, ts)
		}
	}
	m.hits[key] = kept

	current := int64(len(kept))
	if current < limit {
		m.hits[key] = append(kept, now)
		return []interface{}{int64(1), limit - current - 1, now + window}, nil
	}
	return []interface{}{int64(0), int64(0), kept[0] + window}, nil
}

func newRouter(runner ScriptRunner, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(RateLimiter(runner, RateLimiterConfig{MaxRequests: 2, Window: time.Minute, KeyPrefix: "test:"}, m, logger.Nop()))
	r.POST("/api/chat", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func send(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	store := &memoryWindow{}
	m := metrics.New()
	r := newRouter(store, m)

	w := send(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = send(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = send(r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"There was an error"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))

	assert.Equal(t, "test:ip:203.0.113.7", store.keys[0])
}

func TestRateLimiter_FailOpen(t *testing.T) {
	r := newRouter(&memoryWindow{err: errors.New("connection refused")}, nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send(r).Code)
	}
}

type badResult struct{}

func (badResult) RunScript(context.Context, *goredis.Script, []string, ...interface{}) (interface{}, error) {
	return "nope", nil
}

func TestRateLimiter_BadResultFailsOpen(t *testing.T) {
	r := newRouter(badResult{}, nil)
	assert.Equal(t, http.StatusOK, send(r).Code)
}
