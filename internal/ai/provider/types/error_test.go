package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusUnauthorized, ErrorTypeAuthentication},
		{http.StatusForbidden, ErrorTypePermission},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusBadGateway, ErrorTypeAPI},
		{418, ErrorTypeAPI},
	}
	for _, tt := range tests {
		err := NewStatusError("openai", tt.status, "", "")
		assert.Equal(t, tt.want, err.Type, "status %d", tt.status)
		assert.Equal(t, tt.status, err.StatusCode)
		assert.NotEmpty(t, err.Message)
	}
}

func TestProviderError_Error(t *testing.T) {
	err := NewStatusError("openai", http.StatusUnauthorized, "Incorrect API key provided", "req_1")
	assert.Equal(t, "[openai][authentication_error][401] Incorrect API key provided (request_id: req_1)", err.Error())

	cause := errors.New("connection refused")
	terr := NewProviderError("openai", "request failed", cause)
	assert.Equal(t, "[openai][transport_error] request failed: connection refused", terr.Error())
	assert.ErrorIs(t, terr, cause)
}

func TestConfigValidate(t *testing.T) {
	c := &Config{}
	assert.ErrorIs(t, c.Validate(), ErrMissingBaseURL)

	c.BaseURL = "https://api.openai.com/v1"
	assert.NoError(t, c.Validate())
	assert.NotZero(t, c.DialTimeout)
	assert.NotZero(t, c.ResponseHeaderTimeout)
}
