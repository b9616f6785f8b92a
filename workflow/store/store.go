// Package store provides execution store and step journal
// implementations for the workflow runtime. The memory backends serve
// tests and single-process hosts; the SQLite and MySQL backends
// persist across restarts, which is what makes durable replay work.
package store

import "errors"

// ErrNotFound is returned when a requested execution does not exist.
var ErrNotFound = errors.New("execution not found")
