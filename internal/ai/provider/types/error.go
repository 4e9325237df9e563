package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType 上游错误类型
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error" // 400
	ErrorTypeAuthentication ErrorType = "authentication_error"  // 401
	ErrorTypePermission     ErrorType = "permission_error"      // 403
	ErrorTypeNotFound       ErrorType = "not_found_error"       // 404
	ErrorTypeRateLimit      ErrorType = "rate_limit_error"      // 429
	ErrorTypeAPI            ErrorType = "api_error"             // 5xx 或未知状态
	ErrorTypeTransport      ErrorType = "transport_error"       // 没有拿到 HTTP 响应
)

// ErrEmptyModeration is returned when the moderation endpoint answers 2xx
// without any result.
var ErrEmptyModeration = errors.New("moderation response has no results")

// ProviderError Provider 错误
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int    // 0 when no response was received
	Message    string
	RequestID  string // upstream x-request-id
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("[%s][%s] %s", e.Provider, e.Type, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("[%s][%s][%d] %s", e.Provider, e.Type, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request_id: %s)", e.RequestID)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError 创建传输层错误（未收到响应）
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Type:     ErrorTypeTransport,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NewStatusError 根据 HTTP 状态码创建错误
func NewStatusError(provider string, statusCode int, message, requestID string) *ProviderError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &ProviderError{
		Type:       errorTypeForStatus(statusCode),
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		RequestID:  requestID,
	}
}

func errorTypeForStatus(code int) ErrorType {
	switch code {
	case http.StatusBadRequest:
		return ErrorTypeInvalidRequest
	case http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case http.StatusForbidden:
		return ErrorTypePermission
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	default:
		return ErrorTypeAPI
	}
}
