package core

import "errors"

// Failure taxonomy shared by every service. Callers match with errors.Is;
// each layer wraps with fmt.Errorf("%w") so the kind survives the stack.
var (
	// ErrNotFound means an operation referenced an id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the entity exists but cannot satisfy the request,
	// e.g. credit-card info requested for a cash wallet.
	ErrInvalidState = errors.New("invalid state")

	// ErrConstraint means a referenced entity is missing or a relation rule
	// would be violated. Raised before any balance is mutated.
	ErrConstraint = errors.New("constraint violation")
)
