// Package tokenizer estimates how many tokens a piece of text costs.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
)

// DefaultEncoding is used when neither an encoding nor a known model is given.
const DefaultEncoding = "cl100k_base"

// Estimator returns the approximate token count of text.
type Estimator interface {
	Count(text string) int
}

// Tiktoken counts BPE tokens with the tiktoken tables used by OpenAI models.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktoken 按 encoding 创建编码器，encoding 为空时根据 model 推断
func NewTiktoken(model, encoding string) (*Tiktoken, error) {
	var (
		enc *tiktoken.Tiktoken
		err error
	)
	switch {
	case encoding != "":
		enc, err = tiktoken.GetEncoding(encoding)
	case model != "":
		enc, err = tiktoken.EncodingForModel(model)
	default:
		enc, err = tiktoken.GetEncoding(DefaultEncoding)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %w", err)
	}
	return &Tiktoken{encoding: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// Approximate assumes a fixed number of characters per token.
type Approximate struct {
	CharsPerToken int
}

func (a Approximate) Count(text string) int {
	per := a.CharsPerToken
	if per <= 0 {
		per = 4
	}
	n := utf8.RuneCountInString(text)
	return (n + per - 1) / per
}

// New returns a tiktoken estimator, or the character heuristic when the BPE
// tables cannot be loaded (tiktoken fetches them over the network on first use).
func New(model, encoding string, log *logger.Logger) Estimator {
	t, err := NewTiktoken(model, encoding)
	if err != nil {
		log.Warn("tiktoken unavailable, falling back to character estimate",
			zap.String("model", model),
			zap.String("encoding", encoding),
			zap.Error(err),
		)
		return Approximate{CharsPerToken: 4}
	}
	return t
}
