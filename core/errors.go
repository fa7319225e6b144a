package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorCodeBadInput          = "LEDGERSYNC_BAD_INPUT"
	ErrorCodeProviderNotFound  = "LEDGERSYNC_PROVIDER_NOT_FOUND"
	ErrorCodeAuthExchange      = "LEDGERSYNC_AUTH_EXCHANGE_FAILED"
	ErrorCodeReconnectRequired = "LEDGERSYNC_RECONNECT_REQUIRED"
	ErrorCodeRateLimited       = "LEDGERSYNC_RATE_LIMITED"
	ErrorCodeProviderTransient = "LEDGERSYNC_PROVIDER_TRANSIENT"
	ErrorCodeWebhookAuth       = "LEDGERSYNC_WEBHOOK_AUTH_FAILED"
	ErrorCodeRefreshLocked     = "LEDGERSYNC_REFRESH_LOCKED"
	ErrorCodeVaultFailure      = "LEDGERSYNC_VAULT_FAILURE"
	ErrorCodeInternal          = "LEDGERSYNC_INTERNAL_ERROR"
)

// NewAuthExchangeError marks a rejected authorization code; the user retries
// by restarting the authorization flow.
func NewAuthExchangeError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryAuth, ErrorCodeAuthExchange)
}

// NewReconnectRequiredError marks a rejected refresh token. Never retried
// automatically; surfaced to the tenant as an action item.
func NewReconnectRequiredError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryAuth, ErrorCodeReconnectRequired)
}

func NewRateLimitedError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryRateLimit, ErrorCodeRateLimited)
}

func NewProviderTransientError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryExternal, ErrorCodeProviderTransient)
}

// NewWebhookAuthError marks a signature mismatch; rejected with no side
// effects and logged for security monitoring.
func NewWebhookAuthError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryAuth, ErrorCodeWebhookAuth)
}

// NewVaultError marks a credential encryption/decryption failure. Treated as
// a fatal configuration error, distinct from provider errors: never retried.
func NewVaultError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryInternal, ErrorCodeVaultFailure)
}

// IsReconnectRequired reports whether err carries the reconnect-required
// classification, at any wrap depth.
func IsReconnectRequired(err error) bool {
	return hasTextCode(err, ErrorCodeReconnectRequired)
}

func IsAuthExchangeError(err error) bool {
	return hasTextCode(err, ErrorCodeAuthExchange)
}

func IsRateLimited(err error) bool {
	return hasTextCode(err, ErrorCodeRateLimited)
}

func IsProviderTransient(err error) bool {
	return hasTextCode(err, ErrorCodeProviderTransient)
}

func IsWebhookAuthError(err error) bool {
	return hasTextCode(err, ErrorCodeWebhookAuth)
}

func IsVaultError(err error) bool {
	return hasTextCode(err, ErrorCodeVaultFailure)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), textCode)
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "provider") && strings.Contains(msg, "not registered"):
		return newServiceError(err.Error(), goerrors.CategoryNotFound, ErrorCodeProviderNotFound)
	case strings.Contains(msg, "refresh lock"), strings.Contains(msg, "lock already held"):
		return newServiceError(err.Error(), goerrors.CategoryConflict, ErrorCodeRefreshLocked)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newServiceError(err.Error(), goerrors.CategoryRateLimit, ErrorCodeRateLimited)
	case strings.Contains(msg, "not found"):
		return newServiceError(err.Error(), goerrors.CategoryNotFound, ErrorCodeProviderNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ErrorCodeBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorCodeBadInput
	case goerrors.CategoryNotFound:
		return ErrorCodeProviderNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorCodeReconnectRequired
	case goerrors.CategoryConflict:
		return ErrorCodeRefreshLocked
	case goerrors.CategoryRateLimit:
		return ErrorCodeRateLimited
	case goerrors.CategoryExternal:
		return ErrorCodeProviderTransient
	default:
		return ErrorCodeInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
