package fsmanager

import "errors"

// Sentinel errors returned by FsManager operations. Callers should match
// these with errors.Is; the concrete error returned usually wraps one of
// these with additional context via fmt.Errorf("%w: ...").
var (
	// ErrNotFound is returned by Get when no object exists for the given id
	// and extension, either in the cache or on disk.
	ErrNotFound = errors.New("fsmanager: object not found")

	// ErrAlreadyExists is returned by Insert when an object already exists
	// at the derived path. Insert never overwrites existing data.
	ErrAlreadyExists = errors.New("fsmanager: object already exists")

	// ErrStreamAborted is returned by Insert when copying from the source
	// reader failed before the object was fully written. The partial temp
	// file is discarded; no final object is ever
	// visible as a result of an aborted stream.
	ErrStreamAborted = errors.New("fsmanager: insert stream aborted before completion")

	// ErrIoFailure wraps unexpected filesystem errors that are not one of
	// the above (permission failures, disk full, and the like).
	ErrIoFailure = errors.New("fsmanager: filesystem operation failed")
)
