package server

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/lk2023060901/chat-proxy/internal/conf"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
)

// ServiceName is the name reported by the gRPC health service for the proxy.
const ServiceName = "chatproxy.ChatProxy"

// GRPCServer gRPC 服务器，只提供健康检查与反射
type GRPCServer struct {
	addr       string
	logger     *logger.Logger
	grpcServer *grpc.Server
	health     *health.Server
}

// NewGRPCServer 创建 gRPC 服务器
func NewGRPCServer(config *conf.Config, log *logger.Logger) *GRPCServer {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RecoveryInterceptor(log),
			logger.UnaryServerInterceptor(log, healthpb.Health_Check_FullMethodName),
		),
		grpc.ChainStreamInterceptor(
			logger.StreamServerInterceptor(log, healthpb.Health_Watch_FullMethodName),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	// 启用反射（用于 grpcurl 等工具）
	reflection.Register(grpcServer)

	return &GRPCServer{
		addr:       config.Server.GRPCAddr(),
		logger:     log,
		grpcServer: grpcServer,
		health:     hs,
	}
}

// Start 启动 gRPC 服务器
func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve blocks serving on lis.
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("starting gRPC server", zap.String("addr", lis.Addr().String()))

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING, then drains in-flight calls.
func (s *GRPCServer) Stop() {
	s.logger.Info("stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
