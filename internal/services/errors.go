package services

import (
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
)

// ErrNotFound is returned by the credential store when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Exchange failures without an RFC 6749 sentinel in go-oauth2.
var (
	ErrInvalidToken         = errors.New(models.ErrInvalidToken)
	ErrTokenExpired         = errors.New(models.ErrTokenExpired)
	ErrRateLimitExceeded    = errors.New(models.ErrRateLimitExceeded)
	ErrInvalidServerAccount = errors.New(models.ErrInvalidServerAccount)
)

// ExchangeError carries a protocol error code and a caller-safe description.
// Code is one of the go-oauth2 sentinels or the local ones above.
type ExchangeError struct {
	Code        error
	Description string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.Error(), e.Description)
}

func (e *ExchangeError) Unwrap() error {
	return e.Code
}

func exchangeError(code error, format string, args ...any) *ExchangeError {
	return &ExchangeError{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Shorthands used by the grant handler.
func InvalidRequest(format string, args ...any) error {
	return exchangeError(oauth2errors.ErrInvalidRequest, format, args...)
}

func InvalidClient(format string, args ...any) error {
	return exchangeError(oauth2errors.ErrInvalidClient, format, args...)
}

func InvalidGrant(format string, args ...any) error {
	return exchangeError(oauth2errors.ErrInvalidGrant, format, args...)
}

func RateLimited(format string, args ...any) error {
	return exchangeError(ErrRateLimitExceeded, format, args...)
}
