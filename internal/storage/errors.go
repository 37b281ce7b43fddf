package storage

import "errors"

// ErrNotFound is returned by point lookups for missing rows. Deletes of
// absent rows are not errors.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a failed durable-store operation so callers can tell
// storage failures apart from validation failures.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err originated in the durable store.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
