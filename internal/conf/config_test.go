package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(OpenAIKeyEnv, "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/api/chat", cfg.Chat.Path)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Chat.Model)
	assert.Equal(t, 4000, cfg.Chat.MaxTokens)
	assert.Equal(t, CredentialEnv, cfg.Chat.Credential.Source)
	assert.Equal(t, PromptStatic, cfg.Chat.Prompt.Source)
	assert.Equal(t, DefaultSystemPrompt, cfg.Chat.Prompt.Text)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  grpc_port: 9091
chat:
  max_tokens: 2048
  credential:
    source: request
  prompt:
    source: request
rate_limit:
  enabled: true
  requests: 5
  window: 30s
`)
	t.Setenv(OpenAIKeyEnv, "sk-test")
	t.Setenv("CHATPROXY_CHAT_MODEL", "gpt-4o-mini")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9091", cfg.Server.GRPCAddr())
	assert.Equal(t, 2048, cfg.Chat.MaxTokens)
	assert.Equal(t, CredentialRequest, cfg.Chat.Credential.Source)
	assert.Equal(t, PromptRequest, cfg.Chat.Prompt.Source)
	assert.Equal(t, DefaultSystemPrompt, cfg.Chat.Prompt.Text)
	assert.Equal(t, "gpt-4o-mini", cfg.Chat.Model)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Redis.Addrs)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown credential source", "chat:\n  credential:\n    source: vault\n"},
		{"ssm without parameter", "chat:\n  credential:\n    source: ssm\n"},
		{"unknown prompt source", "chat:\n  prompt:\n    source: random\n"},
		{"zero budget", "chat:\n  max_tokens: 0\n"},
		{"relative path", "chat:\n  path: api/chat\n"},
		{"same ports", "server:\n  port: 8080\n  grpc_port: 8080\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"rate limit without window", "rate_limit:\n  enabled: true\n  window: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_Unparseable(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}
