// Package stable implements a durable, partitioned memory space and the
// structures built on top of it: a single-value cell and an ordered map keyed
// by uint64.
//
// A Memory is one contiguous byte-addressable region that only ever grows. The
// Manager carves it into fixed-size buckets and hands them out to partitions,
// so every logical collection can grow independently without moving the bytes
// of any other collection.
package stable

import (
	"fmt"
	"sync"
)

// Memory is a growable byte-addressable store. Reads and writes must fall
// entirely inside [0, Size()).
type Memory interface {
	Size() int64
	Grow(delta int64) error
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Sync() error
	Close() error
}

// Buffer is an in-memory Memory. Its contents survive Close, which lets tests
// simulate a restart by building a new Manager over the same Buffer.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

func (b *Buffer) Grow(delta int64) error {
	if delta < 0 {
		return fmt.Errorf("negative grow delta %d", delta)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, make([]byte, delta)...)
	return nil
}

func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := checkBounds(off, len(p), int64(len(b.data))); err != nil {
		return 0, err
	}
	return copy(p, b.data[off:]), nil
}

func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := checkBounds(off, len(p), int64(len(b.data))); err != nil {
		return 0, err
	}
	return copy(b.data[off:], p), nil
}

func (b *Buffer) Sync() error  { return nil }
func (b *Buffer) Close() error { return nil }

func checkBounds(off int64, n int, size int64) error {
	if off < 0 || off+int64(n) > size {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfBounds, off, off+int64(n), size)
	}
	return nil
}
