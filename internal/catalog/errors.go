package catalog

import "errors"

var (
	// ErrInvalidDescriptor marks a malformed catalog entry. It is a packaging
	// defect and fatal at startup.
	ErrInvalidDescriptor = errors.New("invalid register descriptor")

	// ErrOutOfRange means the raw word buffer does not cover a register's span.
	// Callers skip that register and continue the pass.
	ErrOutOfRange = errors.New("register span out of range")

	// ErrUnknownCode means a single-label table has no entry for the value.
	// Callers display the raw value instead.
	ErrUnknownCode = errors.New("unknown code")
)
