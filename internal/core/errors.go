package core

import "errors"

// Error taxonomy for client-facing failures. Every rejected action maps to
// exactly one of these so UIs can react per cause.
var (
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrAccessDenied     = errors.New("access denied: you are not a member of this channel's group")
	ErrNotFound         = errors.New("not found")
	ErrCallNotFound     = errors.New("call not found or already ended")
	ErrRecipientOffline = errors.New("precondition failed: recipient is offline")
	ErrNotSameChannel   = errors.New("precondition failed: caller and recipient are not in the same channel")
	ErrNoChannel        = errors.New("precondition failed: you are not in a channel")
	ErrNotInChannel     = errors.New("precondition failed: you are not present in this channel")
	ErrPersistence      = errors.New("internal failure: message could not be saved")
	ErrClientGone       = errors.New("not found: connection is no longer registered")
)

// Error codes carried on the generic error event.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeAccessDenied    = "access_denied"
	CodeNotFound        = "not_found"
	CodePrecondition    = "precondition_failed"
	CodeInternal        = "internal"
)

// CodeOf maps a taxonomy error to its wire code. Unrecognized errors are
// internal failures.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCallNotFound), errors.Is(err, ErrClientGone):
		return CodeNotFound
	case errors.Is(err, ErrRecipientOffline),
		errors.Is(err, ErrNotSameChannel),
		errors.Is(err, ErrNoChannel),
		errors.Is(err, ErrNotInChannel):
		return CodePrecondition
	default:
		return CodeInternal
	}
}
