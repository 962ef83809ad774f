package notifications

import "errors"

var (
	// ErrInvalidRecipient indicates a recipient identifier that could not be
	// resolved to a positive integer, or an unknown namespace.
	ErrInvalidRecipient = errors.New("invalid recipient identifier")

	// ErrInvalidInput indicates an empty required collection or an empty
	// status string.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistenceFailure indicates the durable store could not complete
	// a read or write. Record is atomic: on this error no partial
	// notification is ever visible.
	ErrPersistenceFailure = errors.New("persistence failure")
)
