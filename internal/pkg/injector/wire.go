//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"

	"github.com/lk2023060901/chat-proxy/internal/chat/biz"
	"github.com/lk2023060901/chat-proxy/internal/chat/service"
	"github.com/lk2023060901/chat-proxy/internal/conf"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/server"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	// Upstream and helpers
	provideMetrics,
	provideEstimator,
	provideOpenAIProvider,
	provideChatProvider,

	// Use case
	provideCredentialSource,
	providePromptSource,
	provideChatOptions,
	biz.NewChatUseCase,

	// HTTP handlers
	service.NewChatService,

	// Servers
	provideRateLimit,
	server.NewHTTPServer,
	provideGRPCServer,
)

// InitializeApp initializes the application with Wire
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(ProviderSet, newApp)
	return nil, nil, nil
}
