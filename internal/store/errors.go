package store

import "errors"

// ErrNotFound covers both a genuinely missing record and an ownership
// mismatch. The two are deliberately indistinguishable to callers so that
// conversation ids never leak whether they belong to someone else.
var ErrNotFound = errors.New("not found")
