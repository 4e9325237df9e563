package injector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lk2023060901/chat-proxy/internal/ai/provider/openai"
	providertypes "github.com/lk2023060901/chat-proxy/internal/ai/provider/types"
	"github.com/lk2023060901/chat-proxy/internal/ai/tokenizer"
	"github.com/lk2023060901/chat-proxy/internal/chat/biz"
	"github.com/lk2023060901/chat-proxy/internal/conf"
	"github.com/lk2023060901/chat-proxy/internal/integrations/paramstore"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/pkg/metrics"
	pkgredis "github.com/lk2023060901/chat-proxy/internal/pkg/redis"
	"github.com/lk2023060901/chat-proxy/internal/server"
	"github.com/lk2023060901/chat-proxy/internal/server/middleware"
)

// Provider functions shared by wire.go and wire_gen.go

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

func provideEstimator(config *conf.Config, log *logger.Logger) tokenizer.Estimator {
	return tokenizer.New(config.Chat.Model, config.Chat.Encoding, log)
}

func provideOpenAIProvider(config *conf.Config) (*openai.Provider, func(), error) {
	p, err := openai.New(&providertypes.Config{
		BaseURL:               config.OpenAI.BaseURL,
		ModerationModel:       config.OpenAI.ModerationModel,
		DialTimeout:           config.OpenAI.DialTimeout,
		ResponseHeaderTimeout: config.OpenAI.ResponseHeaderTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("openai provider: %w", err)
	}
	return p, func() { _ = p.Close() }, nil
}

func provideChatProvider(p *openai.Provider) biz.ChatProvider {
	return p
}

func provideCredentialSource(config *conf.Config, log *logger.Logger) (biz.CredentialSource, error) {
	switch config.Chat.Credential.Source {
	case conf.CredentialRequest:
		return biz.RequestCredential{}, nil
	case conf.CredentialSSM:
		client, err := paramstore.NewFromEnv(context.Background(), config.AWS.Region)
		if err != nil {
			return nil, err
		}
		return biz.NewParameterCredential(client, config.Chat.Credential.SSMParameter), nil
	default:
		if config.OpenAI.APIKey == "" {
			// 不阻止启动，每个请求都会以 MissingCredential 失败
			log.Warn("OPENAI_KEY is not set; chat requests will fail until it is")
		}
		return biz.StaticCredential{Key: config.OpenAI.APIKey}, nil
	}
}

func providePromptSource(config *conf.Config) biz.PromptSource {
	if config.Chat.Prompt.Source == conf.PromptRequest {
		return biz.RequestPrompt{Fallback: config.Chat.Prompt.Text}
	}
	return biz.StaticPrompt{Text: config.Chat.Prompt.Text}
}

func provideChatOptions(config *conf.Config) biz.Options {
	return biz.Options{
		Model:       config.Chat.Model,
		MaxTokens:   config.Chat.MaxTokens,
		Temperature: biz.DefaultTemperature,
	}
}

func provideRateLimit(config *conf.Config, log *logger.Logger, m *metrics.Metrics) (server.RateLimit, func(), error) {
	if !config.RateLimit.Enabled {
		return nil, func() {}, nil
	}

	log = log.Named("ratelimit")
	client, err := pkgredis.New(&config.Redis, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("rate limiting enabled",
		zap.Int("requests", config.RateLimit.Requests),
		zap.Duration("window", config.RateLimit.Window),
	)

	limiter := middleware.RateLimiter(client, middleware.RateLimiterConfig{
		MaxRequests: config.RateLimit.Requests,
		Window:      config.RateLimit.Window,
		KeyPrefix:   config.RateLimit.KeyPrefix,
	}, m, log)
	return server.RateLimit(limiter), func() { _ = client.Close() }, nil
}

// provideGRPCServer returns nil when no gRPC port is configured.
func provideGRPCServer(config *conf.Config, log *logger.Logger) *server.GRPCServer {
	if config.Server.GRPCPort == 0 {
		return nil
	}
	return server.NewGRPCServer(config, log.Named("grpc"))
}

func newApp(
	config *conf.Config,
	log *logger.Logger,
	httpServer *server.HTTPServer,
	grpcServer *server.GRPCServer,
) *App {
	return &App{
		Config:     config,
		Logger:     log,
		HTTPServer: httpServer,
		GRPCServer: grpcServer,
	}
}
