package stable

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMagic    = errors.New("invalid magic")
	ErrInvalidVersion  = errors.New("unsupported version")
	ErrOutOfBounds     = errors.New("access out of bounds")
	ErrNoSpace         = errors.New("no unallocated buckets left")
	ErrLocked          = errors.New("memory file is locked by another process")
	ErrClosed          = errors.New("memory is closed")
	ErrCorrupted       = errors.New("stable data corrupted")
	ErrValueTooLarge   = errors.New("encoded value exceeds slot capacity")
	ErrCounterOverflow = errors.New("counter overflow")
)

// ChecksumMismatchError is returned when a stored value does not match its checksum.
type ChecksumMismatchError struct {
	Key      uint64
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for key %d: expected 0x%08x, got 0x%08x", e.Key, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error {
	return ErrCorrupted
}
