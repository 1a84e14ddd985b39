// Package common defines shared constants and sentinel errors used across
// the tracklet client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Resource-level errors.
	ErrorNotFound = errors.New("not found")

	// Generic service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
