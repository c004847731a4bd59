package domain

import "errors"

// ErrNotFound is the common kind behind every "no such record" error.
var ErrNotFound = errors.New("not found")
