package errors

import (
	"fmt"
	"net/http"
)

// Code describes a failure kind: its business code, the HTTP status the
// client sees, a log message and a short metric label.
type Code struct {
	Code    int
	Status  int
	Message string
	Label   string
}

const (
	// Common errors (1000-1099)
	ErrInternalServer = 1000

	// Chat proxy errors (1100-1199)
	ErrMissingCredential = 1100
	ErrMissingBody       = 1101
	ErrMissingMessages   = 1102
	ErrContentFlagged    = 1103
	ErrBudgetExceeded    = 1104
	ErrUpstream          = 1105
	ErrRateLimited       = 1106
)

// PublicMessage is the only error text a client ever receives.
const PublicMessage = "There was an error"

// Every chat failure collapses to HTTP 500 on the wire. The distinct codes
// exist for logs and metrics only.
var codeMap = map[int]Code{
	ErrInternalServer: {ErrInternalServer, http.StatusInternalServerError, "Unexpected error", "internal"},

	ErrMissingCredential: {ErrMissingCredential, http.StatusInternalServerError, "OpenAI key not found", "missing_credential"},
	ErrMissingBody:       {ErrMissingBody, http.StatusInternalServerError, "No data found", "missing_body"},
	ErrMissingMessages:   {ErrMissingMessages, http.StatusInternalServerError, "No messages found", "missing_messages"},
	ErrContentFlagged:    {ErrContentFlagged, http.StatusInternalServerError, "Message flagged", "content_flagged"},
	ErrBudgetExceeded:    {ErrBudgetExceeded, http.StatusInternalServerError, "Message too long", "budget_exceeded"},
	ErrUpstream:          {ErrUpstream, http.StatusInternalServerError, "OpenAI API error", "upstream"},
	ErrRateLimited:       {ErrRateLimited, http.StatusTooManyRequests, "Rate limit exceeded", "rate_limited"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// GetLabel returns the metric label for a given error code
func GetLabel(code int) string {
	return GetCode(code).Label
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
