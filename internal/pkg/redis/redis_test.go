package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "single needs one addr", mutate: func(c *Config) { c.Addrs = nil }, wantErr: true},
		{name: "sentinel needs master name", mutate: func(c *Config) { c.Mode = ModeSentinel }, wantErr: true},
		{name: "sentinel ok", mutate: func(c *Config) {
			c.Mode = ModeSentinel
			c.MasterName = "mymaster"
		}},
		{name: "cluster rejects db", mutate: func(c *Config) {
			c.Mode = ModeCluster
			c.DB = 2
		}, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "ring" }, wantErr: true},
		{name: "bad pool", mutate: func(c *Config) { c.PoolSize = 0 }, wantErr: true},
		{name: "idle above pool", mutate: func(c *Config) { c.MinIdleConns = 99 }, wantErr: true},
		{name: "bad db", mutate: func(c *Config) { c.DB = 16 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// testClient 需要本地 redis，未设置 REDIS_ADDR 时跳过
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	cfg := DefaultConfig()
	cfg.Addrs = []string{addr}
	c, err := New(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRunScript(t *testing.T) {
	c := testClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	script := redis.NewScript(`return redis.call("INCRBY", KEYS[1], ARGV[1])`)
	key := "chat-proxy:test:" + time.Now().Format("150405.000000")
	defer c.rdb.Del(ctx, key)

	res, err := c.RunScript(ctx, script, []string{key}, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res)

	res, err = c.RunScript(ctx, script, []string{key}, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, res)
}

func TestNew_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addrs = []string{"127.0.0.1:1"}
	cfg.DialTimeout = 200 * time.Millisecond

	_, err := New(cfg, logger.Nop())
	assert.Error(t, err)
}
