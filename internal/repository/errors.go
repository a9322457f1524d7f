package repository

import "errors"

// ErrNotFound is returned when a mutation or lookup references an id that
// does not exist. Callers translate it to a 404; it is never swallowed.
var ErrNotFound = errors.New("not found")
