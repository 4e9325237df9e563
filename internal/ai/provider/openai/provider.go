package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/lk2023060901/chat-proxy/internal/ai/provider/types"
)

// maxErrorBody caps how much of a failed upstream response is read for logging.
const maxErrorBody = 4 << 10

// Provider OpenAI Provider 实现
type Provider struct {
	config *types.Config
	client *http.Client
}

// New 创建 OpenAI Provider
func New(config *types.Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &Provider{
		config: config,
		// 不设置 Timeout：流式响应的时长由请求 context 控制
		client: &http.Client{Transport: transport},
	}, nil
}

// Name 返回 Provider 名称
func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) baseURL() string {
	return strings.TrimRight(p.config.BaseURL, "/")
}

// moderationRequest mirrors goopenai.ModerationRequest, except that input is
// always sent: the SDK tags it omitempty and the API rejects a body without it.
type moderationRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

// Moderate 调用 /moderations，只返回第一条结果
func (p *Provider) Moderate(ctx context.Context, apiKey, input string) (*types.ModerationResult, error) {
	resp, err := p.post(ctx, apiKey, "/moderations", "application/json", moderationRequest{
		Input: input,
		Model: p.config.ModerationModel,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out goopenai.ModerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &types.ProviderError{
			Type:     types.ErrorTypeAPI,
			Provider: p.Name(),
			Message:  "decode moderation response failed",
			Err:      err,
		}
	}
	if len(out.Results) == 0 {
		return nil, &types.ProviderError{
			Type:     types.ErrorTypeAPI,
			Provider: p.Name(),
			Message:  "moderation request failed",
			Err:      types.ErrEmptyModeration,
		}
	}

	return &types.ModerationResult{
		ID:      out.ID,
		Model:   out.Model,
		Flagged: out.Results[0].Flagged,
	}, nil
}

// CreateChatCompletionStream 创建流式聊天补全，返回上游原始响应体。
// 调用方负责关闭返回的 ReadCloser。非 2xx 响应返回 *types.ProviderError。
func (p *Provider) CreateChatCompletionStream(ctx context.Context, apiKey string, req goopenai.ChatCompletionRequest) (io.ReadCloser, error) {
	req.Stream = true

	resp, err := p.post(ctx, apiKey, "/chat/completions", "text/event-stream", newChatCompletionRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// chatMessage always carries content; goopenai.ChatCompletionMessage drops an
// empty one.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// chatCompletionRequest is the SDK request with its messages replaced.
type chatCompletionRequest struct {
	goopenai.ChatCompletionRequest
	Messages []chatMessage `json:"messages"`
}

func newChatCompletionRequest(req goopenai.ChatCompletionRequest) chatCompletionRequest {
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content, Name: m.Name})
	}
	return chatCompletionRequest{ChatCompletionRequest: req, Messages: msgs}
}

// post sends payload as JSON. Any non-2xx response is closed and returned as
// a status error carrying the upstream message and request id.
func (p *Provider) post(ctx context.Context, apiKey, path, accept string, payload any) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewProviderError(p.Name(), "marshal request failed", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL()+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, types.NewProviderError(p.Name(), "create request failed", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	for key, value := range p.config.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewProviderError(p.Name(), "request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, types.NewStatusError(p.Name(), resp.StatusCode,
			gjson.GetBytes(body, "error.message").String(),
			resp.Header.Get("x-request-id"),
		)
	}
	return resp, nil
}

// Close 关闭 Provider
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
