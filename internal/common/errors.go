// Package common defines shared constants and sentinel errors used across
// the gophauth server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorUpstream     = errors.New("upstream error")

	// Token errors. All of them satisfy errors.Is(err, ErrInvalidToken).
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)

	// ErrTokenRevoked is returned for tokens present in the blacklist.
	ErrTokenRevoked = errors.New("token has been revoked")
)

// UpstreamError describes a non-2xx answer from a third-party API.
type UpstreamError struct {
	Upstream   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s responded with status %d: %s", e.Upstream, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return ErrorUpstream }
