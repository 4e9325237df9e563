package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/lk2023060901/chat-proxy/internal/chat/service"
	"github.com/lk2023060901/chat-proxy/internal/conf"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/pkg/metrics"
	"github.com/lk2023060901/chat-proxy/internal/pkg/response"
)

// RateLimit is the optional middleware placed in front of the chat route.
type RateLimit gin.HandlerFunc

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	chatService *service.ChatService,
	m *metrics.Metrics,
	limiter RateLimit,
) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              config.Server.HTTPAddr(),
			Handler:           NewHandler(config, log, chatService, m, limiter),
			ReadHeaderTimeout: config.Server.ReadHeaderTimeout,
			// 不设置 WriteTimeout：流式响应可能持续较长时间
		},
		logger: log,
	}
}

// NewHandler builds the router: recovery, access log, /health, /metrics and
// the chat route, wrapped in CORS when enabled.
func NewHandler(
	config *conf.Config,
	log *logger.Logger,
	chatService *service.ChatService,
	m *metrics.Metrics,
	limiter RateLimit,
) http.Handler {
	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLoggerWithConfig(log, logger.MiddlewareOptions{
		SkipPaths: []string{"/health", config.Metrics.Path},
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if config.Metrics.Enabled {
		router.GET(config.Metrics.Path, gin.WrapH(m.Handler()))
	}

	handlers := []gin.HandlerFunc{}
	if limiter != nil {
		handlers = append(handlers, gin.HandlerFunc(limiter))
	}
	handlers = append(handlers, chatService.Chat)
	router.POST(config.Chat.Path, handlers...)

	if !config.CORS.Enabled {
		return router
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   config.CORS.AllowedOrigins,
		AllowedMethods:   config.CORS.AllowedMethods,
		AllowedHeaders:   config.CORS.AllowedHeaders,
		ExposedHeaders:   []string{logger.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           config.CORS.MaxAge,
	})(router)
}

// Start listens on the configured address and blocks until the server stops.
func (s *HTTPServer) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve blocks serving on lis. A graceful Stop is not reported as an error.
func (s *HTTPServer) Serve(lis net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", lis.Addr().String()))

	if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
