package registry

import "errors"

var (
	// ErrNotFound reports an operation targeting a record absent from the
	// current identity's partition.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports bad input; never retried.
	ErrValidation = errors.New("invalid input")
	// ErrBackingStore reports a persistence failure. The optimistic
	// in-memory mutation is kept and the record marked dirty; the caller
	// may retry the originating intent.
	ErrBackingStore = errors.New("backing store failure")
	// ErrMigration reports a failed guest-to-user migration. The guest
	// store is left intact for a retry.
	ErrMigration = errors.New("migration failed")
	// ErrMigrating rejects guest-scope mutations while a migration is in
	// flight.
	ErrMigrating = errors.New("migration in flight")
)
