package repositories

import "errors"

// ErrNotFound is returned when a requested document does not exist.
// Callers distinguish it from infrastructure failures with errors.Is.
var ErrNotFound = errors.New("document not found")
