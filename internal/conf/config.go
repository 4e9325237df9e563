package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/pkg/redis"
)

const (
	EnvPrefix = "CHATPROXY"
	// OpenAIKeyEnv is read as-is, without the prefix.
	OpenAIKeyEnv = "OPENAI_KEY"
)

const (
	CredentialEnv     = "env"
	CredentialRequest = "request"
	CredentialSSM     = "ssm"

	PromptStatic  = "static"
	PromptRequest = "request"
)

const DefaultSystemPrompt = "You are a very well spoken english man who works in the coal mines"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       logger.Config   `mapstructure:"log"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Chat      ChatConfig      `mapstructure:"chat"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     redis.Config    `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	AWS       AWSConfig       `mapstructure:"aws"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	GRPCPort          int           `mapstructure:"grpc_port"` // 0 disables the gRPC health server
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GRPCPort)
}

type OpenAIConfig struct {
	APIKey                string        `mapstructure:"api_key"`
	BaseURL               string        `mapstructure:"base_url"`
	ModerationModel       string        `mapstructure:"moderation_model"`
	DialTimeout           time.Duration `mapstructure:"dial_timeout"`
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout"`
}

type ChatConfig struct {
	Path      string `mapstructure:"path"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	// Encoding is the tiktoken encoding used for estimation; empty derives it from Model.
	Encoding   string           `mapstructure:"encoding"`
	Credential CredentialConfig `mapstructure:"credential"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
}

type CredentialConfig struct {
	Source       string `mapstructure:"source"` // env, request, ssm
	SSMParameter string `mapstructure:"ssm_parameter"`
}

type PromptConfig struct {
	Source string `mapstructure:"source"` // static, request
	Text   string `mapstructure:"text"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Requests  int           `mapstructure:"requests"`
	Window    time.Duration `mapstructure:"window"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.enablecaller", lc.EnableCaller)
	v.SetDefault("log.enablestacktrace", lc.EnableStacktrace)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.maxsize", lc.File.MaxSize)
	v.SetDefault("log.file.maxage", lc.File.MaxAge)
	v.SetDefault("log.file.maxbackups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.moderation_model", "")
	v.SetDefault("openai.dial_timeout", 10*time.Second)
	v.SetDefault("openai.response_header_timeout", 60*time.Second)

	v.SetDefault("chat.path", "/api/chat")
	v.SetDefault("chat.model", "gpt-3.5-turbo")
	v.SetDefault("chat.max_tokens", 4000)
	v.SetDefault("chat.encoding", "")
	v.SetDefault("chat.credential.source", CredentialEnv)
	v.SetDefault("chat.credential.ssm_parameter", "")
	v.SetDefault("chat.prompt.source", PromptStatic)
	v.SetDefault("chat.prompt.text", DefaultSystemPrompt)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"POST", "GET", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	rc := redis.DefaultConfig()
	v.SetDefault("redis.mode", string(rc.Mode))
	v.SetDefault("redis.addrs", rc.Addrs)
	v.SetDefault("redis.master_name", "")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", rc.DB)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 20)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.key_prefix", "chat-proxy:ratelimit:")

	v.SetDefault("aws.region", "")
}

// LoadConfig reads path (if it exists), then applies CHATPROXY_* env overrides
// and OPENAI_KEY. A missing file is not an error: defaults plus env are enough
// to run the proxy.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai.api_key", OpenAIKeyEnv); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", OpenAIKeyEnv, err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings that would otherwise only fail on the first
// request. The OpenAI key itself is resolved per request and not checked here.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server: invalid grpc_port %d", c.Server.GRPCPort)
	}
	if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.Port {
		return errors.New("server: grpc_port must differ from port")
	}

	if !strings.HasPrefix(c.Chat.Path, "/") {
		return fmt.Errorf("chat: path %q must start with /", c.Chat.Path)
	}
	if c.Chat.Model == "" {
		return errors.New("chat: model is required")
	}
	if c.Chat.MaxTokens <= 0 {
		return errors.New("chat: max_tokens must be > 0")
	}

	switch c.Chat.Credential.Source {
	case CredentialEnv, CredentialRequest:
	case CredentialSSM:
		if c.Chat.Credential.SSMParameter == "" {
			return errors.New("chat: credential.ssm_parameter is required for the ssm source")
		}
	default:
		return fmt.Errorf("chat: unknown credential source %q", c.Chat.Credential.Source)
	}

	switch c.Chat.Prompt.Source {
	case PromptStatic, PromptRequest:
	default:
		return fmt.Errorf("chat: unknown prompt source %q", c.Chat.Prompt.Source)
	}
	if c.Chat.Prompt.Source == PromptStatic && c.Chat.Prompt.Text == "" {
		return errors.New("chat: prompt.text is required for the static source")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics: path %q must start with /", c.Metrics.Path)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return errors.New("rate_limit: requests must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("rate_limit: window must be > 0")
		}
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}
	return nil
}
