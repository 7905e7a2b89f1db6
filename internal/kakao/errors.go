package kakao

import (
	"errors"
	"fmt"
	"net/http"
)

// Op names the provider call that failed.
type Op string

const (
	OpTokenExchange Op = "token_exchange"
	OpFetchProfile  Op = "fetch_profile"
	OpVerifyIDToken Op = "verify_id_token"
)

// ErrTokenRejected matches any ProviderAuthError where Kakao refused the
// credential itself, as opposed to being unreachable or failing.
var ErrTokenRejected = errors.New("kakao rejected the credential")

// ProviderAuthError is returned by every Client call that fails at or on the
// way to Kakao. StatusCode is zero when no response was received.
type ProviderAuthError struct {
	Op         Op
	StatusCode int
	Code       string
	Err        error
}

func newProviderAuthError(op Op, status int, code string, err error) *ProviderAuthError {
	return &ProviderAuthError{Op: op, StatusCode: status, Code: code, Err: err}
}

func (e *ProviderAuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("kakao %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("kakao %s failed: %v", e.Op, e.Err)
}

func (e *ProviderAuthError) Unwrap() error {
	return e.Err
}

// Rejected reports whether Kakao declined the code or token. Timeouts,
// network failures and 5xx responses are not rejections.
func (e *ProviderAuthError) Rejected() bool {
	switch e.Op {
	case OpTokenExchange:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized
	case OpFetchProfile:
		return e.StatusCode == http.StatusUnauthorized
	case OpVerifyIDToken:
		return true
	}
	return false
}

func (e *ProviderAuthError) Is(target error) bool {
	return target == ErrTokenRejected && e.Rejected()
}
