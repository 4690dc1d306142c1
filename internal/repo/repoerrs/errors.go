package repoerrs

import "errors"

// Repository errors wrap the driver error alongside the sentinel, so callers
// can test the sentinel while the SQLSTATE stays reachable through errors.As.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrReferenceMissing = errors.New("referenced record missing")
)
