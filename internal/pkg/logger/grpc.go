package logger

import (
	"context"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDMetadataKey = "x-request-id"

// UnaryServerInterceptor logs every unary call except the ones in skip.
func UnaryServerInterceptor(logger *Logger, skip ...string) grpc.UnaryServerInterceptor {
	skipMethods := toSet(skip)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if skipMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		requestID := extractRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = WithRequestID(ctx, requestID)

		start := time.Now()
		resp, err := handler(ctx, req)

		logCall(logger, "gRPC call", err,
			zap.String("request_id", requestID),
			zap.String("method", info.FullMethod),
			zap.String("service", path.Dir(info.FullMethod)[1:]),
			zap.String("rpc", path.Base(info.FullMethod)),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
// Health Watch streams live for a long time, so callers usually skip them.
func StreamServerInterceptor(logger *Logger, skip ...string) grpc.StreamServerInterceptor {
	skipMethods := toSet(skip)

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if skipMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		requestID := extractRequestID(ss.Context())
		if requestID == "" {
			requestID = uuid.New().String()
		}
		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          WithRequestID(ss.Context(), requestID),
		}

		start := time.Now()
		err := handler(srv, wrapped)

		logCall(logger, "gRPC stream", err,
			zap.String("request_id", requestID),
			zap.String("method", info.FullMethod),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	}
}

// RecoveryInterceptor returns a unary server interceptor for panic recovery
func RecoveryInterceptor(logger *Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC panic recovered",
					zap.String("request_id", GetRequestID(ctx)),
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stacktrace"),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

func logCall(logger *Logger, msg string, err error, fields ...zap.Field) {
	st, _ := status.FromError(err)
	fields = append(fields, zap.String("code", st.Code().String()))
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	switch st.Code() {
	case codes.OK:
		logger.Info(msg, fields...)
	case codes.Canceled, codes.DeadlineExceeded, codes.NotFound:
		logger.Warn(msg, fields...)
	default:
		logger.Error(msg, fields...)
	}
}

// extractRequestID extracts request ID from gRPC metadata
func extractRequestID(ctx context.Context) string {
	if requestID := GetRequestID(ctx); requestID != "" {
		return requestID
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(requestIDMetadataKey); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// wrappedServerStream wraps grpc.ServerStream with custom context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
