package store

import "errors"

// ErrNotFound signals a missing record for operations that cannot report
// absence through an ok bool.
var ErrNotFound = errors.New("record not found")
