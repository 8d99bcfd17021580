package aclsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/projectacl/pkg/httpx"
)

// Error codes returned in the "error" field of a failed response.
const (
	ErrorCodeInvalidRequest         = "invalid_request"
	ErrorCodeInvalidToken           = "invalid_token"
	ErrorCodeForbidden              = "forbidden"
	ErrorCodeEmailMismatch          = "email_mismatch"
	ErrorCodeNotFound               = "not_found"
	ErrorCodeLastOwner              = "last_owner"
	ErrorCodeInviteAlreadyClaimed   = "invite_already_claimed"
	ErrorCodeInviteNotPending       = "invite_not_pending"
	ErrorCodeInviteExpired          = "invite_expired"
	ErrorCodeInviteRevoked          = "invite_revoked"
	ErrorCodeTemporarilyUnavailable = "temporarily_unavailable"
	ErrorCodeRateLimited            = "rate_limit_exceeded"
	ErrorCodeServerError            = "server_error"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("aclsdk: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("aclsdk: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Retryable reports whether the same request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode == http.StatusTooManyRequests
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	var eb httpx.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        eb.Error,
			Description: eb.Description,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
