package domain

import "errors"

// Validation.
var (
	ErrInvalidAlias       = errors.New("alias may contain only letters, digits, '-' and '_'")
	ErrReservedAlias      = errors.New("alias is reserved")
	ErrInvalidDestination = errors.New("destination must be an absolute http(s) URL")
	ErrInvalidMaxClicks   = errors.New("max_clicks must be positive")
	ErrInvalidPassword    = errors.New("password must be between 1 and 72 bytes")
	ErrCannotReactivate   = errors.New("inactive links cannot be reactivated")
)

// Conflict.
var ErrAliasTaken = errors.New("alias is already taken")

// Lookup and access.
var (
	ErrLinkNotFound     = errors.New("link not found")
	ErrLinkGone         = errors.New("link is no longer available")
	ErrPasswordRequired = errors.New("link is password protected")
	ErrPasswordMismatch = errors.New("incorrect password")
)

// Limits and capacity.
var (
	ErrRateLimited        = errors.New("anonymous link limit reached, sign in for higher limits")
	ErrTooManyAttempts    = errors.New("too many unlock attempts, try again later")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free short code")
)
