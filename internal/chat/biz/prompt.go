package biz

import (
	"strings"

	"github.com/lk2023060901/chat-proxy/internal/chat/types"
)

// PromptSource picks the system prompt for a request.
type PromptSource interface {
	Prompt(req *types.ChatRequest) string
}

// StaticPrompt 固定系统提示词
type StaticPrompt struct {
	Text string
}

func (s StaticPrompt) Prompt(*types.ChatRequest) string {
	return s.Text
}

// RequestPrompt uses the caller's prompt field, or Fallback when it is blank.
type RequestPrompt struct {
	Fallback string
}

func (r RequestPrompt) Prompt(req *types.ChatRequest) string {
	if req != nil && strings.TrimSpace(req.Prompt) != "" {
		return req.Prompt
	}
	return r.Fallback
}
