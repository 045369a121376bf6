package domain

import "errors"

var (
	// ErrValidation marks input that violates a domain invariant.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup for a resource that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation rejected because of the current resource state.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition marks an order status transition that is not
	// reachable from the order's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateIdempotencyKey marks an order submission whose
	// (creator, idempotency key) pair is already persisted.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)
