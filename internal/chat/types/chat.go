package types

// Message roles accepted in ChatRequest.Messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 单条对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 代理接口的请求体
// Key 与 Prompt 只在对应来源配置为 request 时生效
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Key      string        `json:"key,omitempty"`
	Prompt   string        `json:"prompt,omitempty"`
}

// LastMessage returns the most recent turn, or nil when there is none.
func (r *ChatRequest) LastMessage() *ChatMessage {
	if r == nil || len(r.Messages) == 0 {
		return nil
	}
	return &r.Messages[len(r.Messages)-1]
}
