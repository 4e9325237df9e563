package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
)

func TestApproximate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
		{"héllo", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Approximate{CharsPerToken: 4}.Count(tt.text), "text %q", tt.text)
	}

	assert.Equal(t, 2, Approximate{}.Count("abcdefgh"))
}

func tiktokenOrSkip(t *testing.T, model, encoding string) *Tiktoken {
	t.Helper()
	enc, err := NewTiktoken(model, encoding)
	if err != nil {
		t.Skipf("tiktoken tables unavailable: %v", err)
	}
	return enc
}

func TestTiktoken_Count(t *testing.T) {
	enc := tiktokenOrSkip(t, "", DefaultEncoding)

	assert.Equal(t, 0, enc.Count(""))
	assert.Equal(t, 1, enc.Count("Hello"))
	assert.Greater(t, enc.Count("You are a very well spoken english man who works in the coal mines"), 10)
}

func TestTiktoken_ForModel(t *testing.T) {
	enc := tiktokenOrSkip(t, "gpt-3.5-turbo", "")
	assert.Equal(t, 1, enc.Count("Hello"))
}

func TestNewTiktoken_UnknownEncoding(t *testing.T) {
	_, err := NewTiktoken("", "no_such_encoding")
	assert.Error(t, err)
}

func TestNew_FallsBack(t *testing.T) {
	est := New("", "no_such_encoding", logger.Nop())
	require.IsType(t, Approximate{}, est)
	assert.Equal(t, 2, est.Count("abcdefgh"))
}
