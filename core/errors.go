package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Well-known error codes shared by every provider client. Provider-specific
// codes pass through unchanged; these are the fallbacks the transport layer
// synthesizes when the provider gives us nothing usable.
const (
	ErrorCodeUnknown            = "UNKNOWN_ERROR"
	ErrorCodeNetwork            = "NETWORK_ERROR"
	ErrorCodeInvalidResponse    = "INVALID_RESPONSE"
	ErrorCodeTokenRefreshFailed = "TOKEN_REFRESH_FAILED"
)

// ProviderError is the uniform failure shape raised by every provider call.
// Retryable is a pure function of (StatusCode, Code); attempt bookkeeping
// belongs to the caller.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	provider := strings.TrimSpace(e.Provider)
	if provider == "" {
		provider = "provider"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (%d): %s", provider, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// AsProviderError unwraps err looking for a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if goerrors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}

// IsRetryable reports whether the caller may safely reissue the failed call.
// Unknown error shapes are never retryable.
func IsRetryable(err error) bool {
	if providerErr, ok := AsProviderError(err); ok {
		return providerErr.Retryable
	}
	return false
}

// RetryableStatus is the shared retry predicate: rate limiting and server
// faults are retryable, as is any provider code on the allowlist. Everything
// else (validation, auth, not-found) is terminal.
func RetryableStatus(statusCode int, code string, allowlist map[string]struct{}) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	if statusCode >= http.StatusInternalServerError {
		return true
	}
	if len(allowlist) == 0 {
		return false
	}
	_, ok := allowlist[strings.TrimSpace(code)]
	return ok
}

// NormalizeAllowlist builds the retry allowlist lookup set. Codes are
// compared verbatim apart from surrounding whitespace since several
// providers use case-sensitive numeric or SCREAMING_SNAKE codes.
func NormalizeAllowlist(codes []string) map[string]struct{} {
	if len(codes) == 0 {
		return map[string]struct{}{}
	}
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

// ToServiceError converts the wire error into a go-errors envelope so
// upstream handlers can reuse the shared category/text-code machinery.
func (e *ProviderError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	metadata := map[string]any{
		"provider_id": strings.TrimSpace(e.Provider),
		"error_code":  e.Code,
		"retryable":   e.Retryable,
	}
	if e.StatusCode > 0 {
		metadata["status_code"] = e.StatusCode
	}
	return goerrors.New(e.Error(), categoryForStatus(e.StatusCode, e.Code)).
		WithCode(envelopeStatus(e.StatusCode)).
		WithTextCode(e.Code).
		WithMetadata(metadata)
}

func categoryForStatus(statusCode int, code string) goerrors.Category {
	if code == ErrorCodeNetwork {
		return goerrors.CategoryExternal
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case statusCode == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case statusCode == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case statusCode == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case statusCode >= http.StatusInternalServerError:
		return goerrors.CategoryExternal
	case statusCode >= http.StatusBadRequest:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}

func envelopeStatus(statusCode int) int {
	if statusCode > 0 {
		return statusCode
	}
	return http.StatusBadGateway
}
