package domain

import "errors"

// ErrDialogNotFound is returned when a dialog id cannot be resolved in a registry.
// Beginning an unregistered dialog is a programmer error, not a runtime condition.
var ErrDialogNotFound = errors.New("dialog not found")

// ErrDuplicateDialog is returned when a dialog id is registered twice.
var ErrDuplicateDialog = errors.New("dialog already registered")

// ErrNoActiveDialog is returned when Continue is called on an empty stack.
var ErrNoActiveDialog = errors.New("no active dialog")

// ErrStepsExhausted is returned when a waterfall runs past its last step
// without an explicit End. This is an authoring bug and never ends silently.
var ErrStepsExhausted = errors.New("step sequence exhausted")

// ErrRecordNotFound is returned when a key does not exist in the state store.
var ErrRecordNotFound = errors.New("record not found")

// ErrConflict is returned when an optimistic-concurrency write loses the race.
var ErrConflict = errors.New("state write conflict")

// ErrAuthPending is returned by a credential provider when the token must be
// delivered by an external event on a later turn.
var ErrAuthPending = errors.New("authentication pending")

// ErrAuthFailed is returned by a credential provider when the user cannot be
// authenticated at all.
var ErrAuthFailed = errors.New("authentication failed")
