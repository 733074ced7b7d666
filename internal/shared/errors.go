package shared

import "errors"

// Error taxonomy for the submission path. Fatal kinds abort the upsert;
// retryable kinds may be retried by the caller with backoff.
var (
	// ErrConfiguration indicates missing or invalid runtime configuration.
	ErrConfiguration = errors.New("configuration invalid")
	// ErrDirectoryUnavailable indicates the identity roster cannot be read.
	ErrDirectoryUnavailable = errors.New("identity directory unavailable")
	// ErrProvisioning indicates container creation failed.
	ErrProvisioning = errors.New("container provisioning failed")
	// ErrLedgerUnavailable indicates the ledger document is missing or unreachable.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrImmutableRecord indicates the row was approved and may not change.
	ErrImmutableRecord = errors.New("submission already approved")
	// ErrLockTimeout indicates the period lock could not be acquired in budget.
	ErrLockTimeout = errors.New("period lock wait exceeded")
	// ErrTransientIO indicates a timed-out or failed blob/document call.
	ErrTransientIO = errors.New("transient i/o failure")

	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates a malformed payload.
	ErrValidation = errors.New("validation failed")
)

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrTransientIO)
}
