package biz

import (
	"context"
	"strings"
	"sync"

	"github.com/lk2023060901/chat-proxy/internal/chat/types"
	apperrors "github.com/lk2023060901/chat-proxy/internal/pkg/errors"
)

// CredentialSource resolves the OpenAI API key for one request.
// req may be nil when the body could not be read.
type CredentialSource interface {
	Resolve(ctx context.Context, req *types.ChatRequest) (string, error)
}

// StaticCredential 服务端密钥（OPENAI_KEY），启动时读取
type StaticCredential struct {
	Key string
}

func (s StaticCredential) Resolve(context.Context, *types.ChatRequest) (string, error) {
	if strings.TrimSpace(s.Key) == "" {
		return "", apperrors.New(apperrors.ErrMissingCredential, "server key is empty")
	}
	return s.Key, nil
}

// RequestCredential 由调用方在请求体 key 字段中提供
type RequestCredential struct{}

func (RequestCredential) Resolve(_ context.Context, req *types.ChatRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.Key) == "" {
		return "", apperrors.New(apperrors.ErrMissingCredential, "request key is empty")
	}
	return req.Key, nil
}

// ParameterGetter 读取参数存储中的值
type ParameterGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParameterCredential loads the key from a parameter store on first use and
// keeps it. A failed lookup is not cached so later requests retry it.
type ParameterCredential struct {
	getter ParameterGetter
	name   string

	mu  sync.Mutex
	key string
}

func NewParameterCredential(getter ParameterGetter, name string) *ParameterCredential {
	return &ParameterCredential{getter: getter, name: name}
}

func (p *ParameterCredential) Resolve(ctx context.Context, _ *types.ChatRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != "" {
		return p.key, nil
	}

	key, err := p.getter.GetParameter(ctx, p.name)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrMissingCredential, "parameter store lookup failed")
	}
	if strings.TrimSpace(key) == "" {
		return "", apperrors.New(apperrors.ErrMissingCredential, "parameter store value is empty")
	}
	p.key = key
	return key, nil
}
