package resilience

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// AuthExpiredError wraps an error caused by expired credentials. Unlike a
// transient error it is not retryable as-is: the credentials must be
// refreshed first.
type AuthExpiredError struct {
	Err error
}

func (e *AuthExpiredError) Error() string {
	return e.Err.Error()
}

func (e *AuthExpiredError) Unwrap() error {
	return e.Err
}

// NewAuthExpiredError wraps an error as an auth expiry.
func NewAuthExpiredError(err error) *AuthExpiredError {
	return &AuthExpiredError{Err: err}
}

// IsAuthExpired reports whether the error chain indicates expired or
// invalid credentials.
func IsAuthExpired(err error) bool {
	if err == nil {
		return false
	}

	var ae *AuthExpiredError
	if errors.As(err, &ae) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"token expired",
		"token is expired",
		"credentials expired",
		"authentication expired",
		"invalid_grant",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// WithAuthRefresh runs op, and when it fails with an auth expiry, calls
// refresh and retries op exactly once. A nil refresh means no credential
// source is available and the expiry passes through. Any other failure
// passes through untouched.
func WithAuthRefresh(ctx context.Context, refresh func(context.Context) error, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !IsAuthExpired(err) || refresh == nil {
		return err
	}

	zap.L().Warn("credentials expired, refreshing and retrying once", zap.Error(err))
	if refreshErr := refresh(ctx); refreshErr != nil {
		return refreshErr
	}
	return op(ctx)
}
