package biz

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	providertypes "github.com/lk2023060901/chat-proxy/internal/ai/provider/types"
	"github.com/lk2023060901/chat-proxy/internal/ai/tokenizer"
	"github.com/lk2023060901/chat-proxy/internal/chat/types"
	apperrors "github.com/lk2023060901/chat-proxy/internal/pkg/errors"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
)

const (
	DefaultModel     = openai.GPT3Dot5Turbo
	DefaultMaxTokens = 4000
)

const DefaultTemperature float32 = 0.9

// ChatProvider is the upstream used by ChatUseCase.
type ChatProvider interface {
	Moderate(ctx context.Context, apiKey, input string) (*providertypes.ModerationResult, error)
	CreateChatCompletionStream(ctx context.Context, apiKey string, req openai.ChatCompletionRequest) (io.ReadCloser, error)
}

// Options 补全请求参数
type Options struct {
	Model       string
	MaxTokens   int // 预估 token 数达到该值即拒绝
	Temperature float32
}

// Stream is an accepted request: the raw upstream body plus the estimate it
// was admitted with. The caller must close Body.
type Stream struct {
	Body         io.ReadCloser
	PromptTokens int
}

// ChatUseCase validates, moderates and forwards one chat request.
type ChatUseCase struct {
	provider    ChatProvider
	estimator   tokenizer.Estimator
	credentials CredentialSource
	prompts     PromptSource
	opts        Options
}

// NewChatUseCase creates a new chat use case
func NewChatUseCase(
	provider ChatProvider,
	estimator tokenizer.Estimator,
	credentials CredentialSource,
	prompts PromptSource,
	opts Options,
) *ChatUseCase {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}

	return &ChatUseCase{
		provider:    provider,
		estimator:   estimator,
		credentials: credentials,
		prompts:     prompts,
		opts:        opts,
	}
}

// Stream runs the request through credential, validation, moderation and
// budget checks, then opens the streaming completion. Every failure is an
// *apperrors.AppError; nothing is retried.
func (uc *ChatUseCase) Stream(ctx context.Context, req *types.ChatRequest) (*Stream, error) {
	apiKey, err := uc.credentials.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	if req == nil {
		return nil, apperrors.New(apperrors.ErrMissingBody)
	}
	if len(req.Messages) == 0 {
		return nil, apperrors.New(apperrors.ErrMissingMessages)
	}

	prompt := uc.prompts.Prompt(req)
	tokens := EstimateTokens(uc.estimator, req.Messages, prompt)

	log := logger.FromContext(ctx)
	log.Debug("chat request estimated",
		zap.Int("messages", len(req.Messages)),
		zap.Int("prompt_tokens", tokens),
	)

	moderation, err := uc.provider.Moderate(ctx, apiKey, req.LastMessage().Content)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "moderation")
	}
	if moderation.Flagged {
		return nil, apperrors.New(apperrors.ErrContentFlagged, moderation.ID)
	}

	if tokens >= uc.opts.MaxTokens {
		return nil, apperrors.New(apperrors.ErrBudgetExceeded,
			fmt.Sprintf("%d tokens, limit %d", tokens, uc.opts.MaxTokens))
	}

	body, err := uc.provider.CreateChatCompletionStream(ctx, apiKey, openai.ChatCompletionRequest{
		Model:       uc.opts.Model,
		Messages:    BuildMessages(prompt, req.Messages),
		Temperature: uc.opts.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "chat completion")
	}

	return &Stream{Body: body, PromptTokens: tokens}, nil
}

// EstimateTokens sums the estimate of every message content plus the system prompt.
func EstimateTokens(est tokenizer.Estimator, messages []types.ChatMessage, prompt string) int {
	total := est.Count(prompt)
	for _, m := range messages {
		total += est.Count(m.Content)
	}
	return total
}

// BuildMessages prepends the system prompt to the caller's messages, keeping their order.
func BuildMessages(prompt string, messages []types.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt,
	})
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}
