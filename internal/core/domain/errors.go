package domain

import "errors"

// ErrNotFound marks lookups for registry entries that do not exist.
// Adapters wrap it so callers can map it with errors.Is.
var ErrNotFound = errors.New("not found")
