package api

import "errors"

var (
	// ErrUnavailable means the request never completed: DNS, dial,
	// timeout. Idempotent reads may be retried; everything else surfaces
	// to the caller.
	ErrUnavailable = errors.New("server unavailable")

	// ErrInvalidCredentials is returned by credential exchanges when the
	// backend rejects the supplied identity proof.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConflict is returned by Register when the identity already exists.
	ErrConflict = errors.New("already registered")

	// ErrExport is returned when the CSV export endpoint fails after the
	// request itself completed.
	ErrExport = errors.New("export failed")
)
