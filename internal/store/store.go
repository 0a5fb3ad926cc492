// Package store provides PostgreSQL persistence for documents, conversation
// turns, and the assistant settings singleton.
//
// Each store wraps a pgx connection pool and exposes typed operations. SQL
// lives here; callers depend on the store types or on small consumer-defined
// interfaces over them.
package store

import "errors"

// ErrNotFound is returned when a requested row does not exist.
// Check with errors.Is().
var ErrNotFound = errors.New("store: not found")
