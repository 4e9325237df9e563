package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/lk2023060901/chat-proxy/internal/pkg/errors"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/pkg/metrics"
	"github.com/lk2023060901/chat-proxy/internal/pkg/response"
	"github.com/lk2023060901/chat-proxy/internal/pkg/validator"
)

// ScriptRunner runs a Lua script; *redis.Client implements it.
type ScriptRunner interface {
	RunScript(ctx context.Context, script *goredis.Script, keys []string, args ...interface{}) (interface{}, error)
}

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	// 时间窗口内允许的最大请求数
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// slidingWindow 原子性滑动窗口：成员为唯一 ID，分值为毫秒时间戳
var slidingWindow = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return {1, limit - current - 1, now + window}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')[2]
return {0, 0, tonumber(oldest) + window}
`)

// RateLimiter limits requests per client IP. When Redis fails the request is
// let through. Rejected requests get 429 with the generic error body.
func RateLimiter(runner ScriptRunner, cfg RateLimiterConfig, m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 20
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + "ip:" + validator.ClientKey(c.ClientIP())

		allowed, remaining, resetAt, err := checkRateLimit(c.Request.Context(), runner, key, cfg)
		if err != nil {
			// 限流器故障时，降级允许请求通过
			log.Error("rate limiter error", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt/1000, 10))

		if !allowed {
			retry := time.Until(time.UnixMilli(resetAt))
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			if m != nil {
				m.RateLimited.Inc()
			}
			logger.FromContext(c.Request.Context()).Warn("rate limit exceeded", zap.String("key", key))
			response.Fail(c, apperrors.New(apperrors.ErrRateLimited, key))
			return
		}

		c.Next()
	}
}

func checkRateLimit(ctx context.Context, runner ScriptRunner, key string, cfg RateLimiterConfig) (allowed bool, remaining int, resetAt int64, err error) {
	now := time.Now().UnixMilli()

	result, err := runner.RunScript(ctx, slidingWindow, []string{key},
		now, cfg.Window.Milliseconds(), cfg.MaxRequests, uuid.NewString())
	if err != nil {
		return false, 0, 0, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return false, 0, 0, fmt.Errorf("invalid rate limit result: %v", result)
	}

	allowedInt, _ := values[0].(int64)
	remainingInt, _ := values[1].(int64)
	resetAt, _ = values[2].(int64)

	return allowedInt == 1, int(remainingInt), resetAt, nil
}
