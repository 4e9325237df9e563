package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCodesCollapseTo500(t *testing.T) {
	codes := []int{
		ErrInternalServer,
		ErrMissingCredential,
		ErrMissingBody,
		ErrMissingMessages,
		ErrContentFlagged,
		ErrBudgetExceeded,
		ErrUpstream,
	}
	for _, code := range codes {
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(code), "code %d", code)
		assert.NotEmpty(t, GetLabel(code), "code %d", code)
	}
}

func TestGetCode_UnknownFallsBackToInternal(t *testing.T) {
	c := GetCode(424242)
	assert.Equal(t, ErrInternalServer, c.Code)
	assert.Equal(t, "internal", c.Label)
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrUpstream))
	})

	t.Run("plain error gets code", func(t *testing.T) {
		cause := stderrors.New("dial tcp: refused")
		err := Wrap(cause, ErrUpstream, "moderation")
		require.NotNil(t, err)
		assert.Equal(t, ErrUpstream, err.Code)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "moderation")
		assert.Contains(t, err.Error(), "refused")
	})

	t.Run("existing code is kept", func(t *testing.T) {
		inner := New(ErrContentFlagged)
		outer := fmt.Errorf("stream: %w", inner)
		err := Wrap(outer, ErrUpstream)
		assert.Equal(t, ErrContentFlagged, err.Code)
	})
}

func TestIsAndExtractCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(ErrBudgetExceeded, "4012 tokens"))
	assert.True(t, Is(err, ErrBudgetExceeded))
	assert.False(t, Is(err, ErrUpstream))
	assert.Equal(t, ErrBudgetExceeded, ExtractCode(err))
	assert.Equal(t, "4012 tokens", GetDetails(err))

	assert.Equal(t, "", GetDetails(New(ErrContentFlagged)))
	assert.Equal(t, "dial failed", GetDetails(Wrap(stderrors.New("dial failed"), ErrUpstream)))

	assert.Equal(t, ErrInternalServer, ExtractCode(stderrors.New("boom")))
	assert.Equal(t, "boom", GetDetails(stderrors.New("boom")))
}

func TestAppErrorLabelAndStatus(t *testing.T) {
	assert.Equal(t, "budget_exceeded", New(ErrBudgetExceeded).Label())
	assert.Equal(t, http.StatusInternalServerError, New(ErrBudgetExceeded).HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, New(ErrRateLimited).HTTPStatus())
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "Message flagged", FormatError(ErrContentFlagged))
	assert.Equal(t, "Message too long: 4100", FormatError(ErrBudgetExceeded, "4100"))
}
