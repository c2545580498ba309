package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalid      = errors.New("invalid")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadCursor marks a pagination token that failed to decode. It is a
	// caller mistake, not a storage failure.
	ErrBadCursor = errors.New("bad_cursor")
	// ErrTooManyPages is returned when a continuation loop exceeds its page cap.
	ErrTooManyPages = errors.New("too_many_pages")
)
