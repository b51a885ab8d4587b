package shared

import (
	"context"
	"errors"
	"fmt"
)

// Error classes. Every sentinel below belongs to exactly one class, so callers can test either the
// precise sentinel or its class with [errors.Is].
var (
	ErrConfiguration  = fmt.Errorf("configuration error")
	ErrAuthentication = fmt.Errorf("authentication error")
	ErrRemote         = fmt.Errorf("remote error")
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = classified("configuration not found", ErrConfiguration)
	ErrInvalidConfig      = classified("invalid configuration", ErrConfiguration)
	ErrMissingCredentials = classified("missing credentials", ErrConfiguration)

	// Authentication errors
	ErrAuthFailed       = classified("authentication failed", ErrAuthentication)
	ErrNotAuthenticated = classified("not authenticated", ErrAuthentication)
	ErrTokenExpired     = classified("access token expired", ErrAuthentication)
	ErrRefreshFailed    = classified("token refresh failed", ErrAuthentication)
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = classified("API request failed", ErrRemote)
	ErrTransient          = classified("transient remote failure", ErrRemote)
	ErrNotFound           = classified("resource not found", ErrRemote)
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// ErrUnknownPlaylist means a playlist name outside the required set reached the registry.
	ErrUnknownPlaylist = fmt.Errorf("unknown playlist")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Classified is a sentinel error that also matches its class.
type Classified struct {
	msg   string
	class error
}

func classified(msg string, class error) *Classified {
	return &Classified{msg: msg, class: class}
}

func (c *Classified) Error() string { return c.msg }

// Is reports class membership so errors.Is(ErrTokenExpired, ErrAuthentication) holds.
func (c *Classified) Is(target error) bool {
	return target == c.class
}

// IsFatal reports whether err must abort a whole run rather than a single track.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrUnknownPlaylist) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Kind names the failure class of err for user-facing messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrUnknownPlaylist):
		return "unknown-playlist"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrRemote):
		return "remote"
	case errors.Is(err, ErrInvalidInput):
		return "invalid-input"
	default:
		return "error"
	}
}
