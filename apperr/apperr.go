// Package apperr defines the error kinds shared across DRIVA services.
//
// Services wrap these sentinels with package context, e.g.
// fmt.Errorf("dispute: reason required: %w", apperr.ErrValidation),
// so callers can branch with errors.Is while messages stay descriptive.
package apperr

import "errors"

var (
	// ErrValidation covers malformed, missing, or unauthorized input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a referenced entity does not exist or is not actionable.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a uniqueness violation or a lost status update.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState signals a transition attempted from a state that forbids it.
	ErrInvalidState = errors.New("invalid state")
	// ErrStorage signals an evidence upload failure.
	ErrStorage = errors.New("storage failure")
	// ErrNotification signals a best-effort notification failure; never fatal.
	ErrNotification = errors.New("notification failure")
	// ErrPartial signals a multi-step operation committed some but not all effects.
	// Records behind it need out-of-band reconciliation, so it must stay
	// distinguishable from total failure.
	ErrPartial = errors.New("partial failure")
	// ErrInvitation signals the department approval invitation failed and the
	// status change was compensated.
	ErrInvitation = errors.New("invitation failure")
	// ErrForbidden signals the caller's role or ownership does not permit the action.
	ErrForbidden = errors.New("forbidden")
)
