package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lk2023060901/chat-proxy/internal/chat/biz"
	"github.com/lk2023060901/chat-proxy/internal/chat/types"
	apperrors "github.com/lk2023060901/chat-proxy/internal/pkg/errors"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/pkg/metrics"
	"github.com/lk2023060901/chat-proxy/internal/pkg/response"
	"github.com/lk2023060901/chat-proxy/internal/pkg/sse"
)

// maxBodyBytes caps how much of the inbound body is decoded.
const maxBodyBytes = 1 << 20

// ChatService 聊天代理 HTTP 接口
type ChatService struct {
	useCase *biz.ChatUseCase
	metrics *metrics.Metrics
}

// NewChatService creates a new chat service
func NewChatService(useCase *biz.ChatUseCase, m *metrics.Metrics) *ChatService {
	return &ChatService{useCase: useCase, metrics: m}
}

// Chat 流式聊天代理
// @Summary Moderated streaming chat completion
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Param request body types.ChatRequest true "Chat Request"
// @Failure 500 {object} response.ErrorBody
// @Router /api/chat [post]
func (s *ChatService) Chat(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	start := time.Now()

	req, err := decodeRequest(c.Request)
	if err != nil {
		log.Debug("chat request body rejected", zap.Error(err))
	}

	stream, err := s.useCase.Stream(ctx, req)
	if err != nil {
		s.fail(c, log, err)
		return
	}
	defer stream.Body.Close()

	s.metrics.ObserveSuccess(stream.PromptTokens, time.Since(start))
	s.metrics.ActiveStreams.Inc()
	defer s.metrics.ActiveStreams.Dec()

	n, err := sse.Relay(c, stream.Body, sse.DefaultBufferSize)
	s.metrics.RelayedBytes.Add(float64(n))
	if err != nil {
		// 响应头已发送，只能记录
		log.Warn("chat stream interrupted",
			zap.Int64("bytes", n),
			zap.Error(err),
		)
		return
	}

	log.Debug("chat stream finished",
		zap.Int64("bytes", n),
		zap.Int("prompt_tokens", stream.PromptTokens),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *ChatService) fail(c *gin.Context, log *logger.Logger, err error) {
	appErr := apperrors.Wrap(err, apperrors.ErrInternalServer)
	label := appErr.Label()

	fields := []zap.Field{
		zap.String("kind", label),
		zap.Int("code", appErr.Code),
		zap.Int("status", appErr.HTTPStatus()),
		zap.Error(err),
	}
	msg := apperrors.FormatError(appErr.Code, apperrors.GetDetails(appErr))
	switch appErr.Code {
	case apperrors.ErrUpstream, apperrors.ErrInternalServer:
		log.Error(msg, fields...)
	default:
		log.Warn(msg, fields...)
	}

	s.metrics.ObserveFailure(label)
	_ = c.Error(err)
	response.Fail(c, err)
}

var errTrailingData = errors.New("unexpected data after JSON body")

// decodeRequest returns nil for an empty, null or malformed body. A body over
// maxBodyBytes is cut off and therefore malformed.
func decodeRequest(r *http.Request) (*types.ChatRequest, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	var req *types.ChatRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	// 只接受单个 JSON 值
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return req, nil
}
