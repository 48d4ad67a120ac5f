// Package id provides identifier generation for Sentinel-KB entities.
//
// ULIDs are used for drafts, knowledge bases, documents, chunks, and pipeline
// executions: they are lexicographically sortable by creation time, which
// keeps listing queries in natural order without an extra column.
package id

import "errors"

// ErrInvalidULID is returned when parsing a malformed ULID string.
var ErrInvalidULID = errors.New("id: invalid ULID")

// defaultULID is the process-wide generator behind NewULID.
var defaultULID = NewULIDGenerator()

// NewULID generates a ULID using the default generator.
func NewULID() string {
	return defaultULID.Generate()
}
