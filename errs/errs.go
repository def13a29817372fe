// Package errs defines the sentinel errors returned across fstable's
// public API.
//
// Record-format, allocator and table-state failures return one of these
// sentinels, directly or wrapped with additional context via
// fmt.Errorf("...: %w", err). Failures of the underlying file or mapping
// (open, truncate, mmap, msync, close) wrap the operating-system error
// instead and match none of these sentinels. Callers should check with
// errors.Is rather than comparing errors directly.
package errs

import "errors"

var (
	// ErrNoSpace is returned when no region can satisfy a requested
	// allocation size, either because every region's summary reports
	// insufficient free space or because every region's FSM rejected
	// the allocation in turn.
	ErrNoSpace = errors.New("fstable: no space available")

	// ErrFragmented is returned when a region has enough total free
	// bytes to satisfy a free operation but its FSM has no empty entry
	// left to record the freed extent.
	ErrFragmented = errors.New("fstable: region free-space map is fragmented")

	// ErrRecordDeleted is returned by lookup or update when the target
	// record's header is a tombstone.
	ErrRecordDeleted = errors.New("fstable: record has been deleted")

	// ErrCorruptTable is returned by Open when the table's magic number
	// doesn't match.
	ErrCorruptTable = errors.New("fstable: table magic mismatch")

	// ErrCorruptRecord is returned when a field-list's magic is wrong or
	// its declared length desynchronizes from its encoded fields.
	ErrCorruptRecord = errors.New("fstable: corrupt field-list record")

	// ErrCorruptField is returned when a field's magic or type tag is
	// invalid.
	ErrCorruptField = errors.New("fstable: corrupt field")

	// ErrPrecondition is returned for programmer errors: operating on an
	// uninitialized or closed table, an empty field-list, or an
	// oversized BYTES/STR value.
	ErrPrecondition = errors.New("fstable: precondition violated")
)
