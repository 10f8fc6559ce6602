package parcel

import (
	"errors"
	"fmt"
)

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrEnoent is returned when an inode or path component does not exist.
	ErrEnoent = errors.New("parcel: requested object does not exist")

	// ErrNotFile is returned when an operation requiring a RegularFile is
	// applied to an inode of another kind.
	ErrNotFile = errors.New("parcel: requested object is not a file")

	// ErrStringConversion is returned when a directory entry name is not
	// valid UTF-8; the pack command rejects such host names with it.
	ErrStringConversion = errors.New("parcel: name is not valid UTF-8")

	// ErrNoVersion is returned when a header is missing its version field.
	ErrNoVersion = errors.New("parcel: header has no version field")

	// ErrVersionType is returned when a header's version field is present
	// but is not an integer.
	ErrVersionType = errors.New("parcel: header version field is not an integer")

	// ErrNeedExpansion is returned by Write when the write would extend
	// past the end of the reserved capacity; the caller should use
	// ExpandWrite or RealocReserved instead.
	ErrNeedExpansion = errors.New("parcel: write exceeds reserved capacity")

	// ErrNotDirectory is returned by Readdir when the inode is not a
	// Directory. The directory-mutating calls (InsertDirent,
	// InsertWhiteout) panic on a non-directory parent instead.
	ErrNotDirectory = errors.New("parcel: parent is not a directory")
)

// VersionMismatchError is returned by Load when a parcel's on-disk format
// version does not match the version this implementation writes.
type VersionMismatchError struct {
	Expected uint32
	Found    uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("parcel: version mismatch (expected %d, got %d)", e.Expected, e.Found)
}
