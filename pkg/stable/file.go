package stable

import (
	"fmt"
	"os"
	"sync"
)

// FileMemory is a Memory backed by a single file. The file is locked
// exclusively for the lifetime of the FileMemory so that only one process
// owns the space.
type FileMemory struct {
	mu     sync.RWMutex
	f      *os.File
	size   int64
	closed bool
}

// OpenFile opens or creates the memory file at path.
func OpenFile(path string) (*FileMemory, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("failed to stat memory file: %w", err)
	}

	return &FileMemory{f: f, size: fi.Size()}, nil
}

func (m *FileMemory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *FileMemory) Grow(delta int64) error {
	if delta < 0 {
		return fmt.Errorf("negative grow delta %d", delta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.f.Truncate(m.size + delta); err != nil {
		return fmt.Errorf("failed to grow memory file: %w", err)
	}
	m.size += delta
	return nil
}

func (m *FileMemory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	if err := checkBounds(off, len(p), m.size); err != nil {
		return 0, err
	}
	return m.f.ReadAt(p, off)
}

func (m *FileMemory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if err := checkBounds(off, len(p), m.size); err != nil {
		return 0, err
	}
	return m.f.WriteAt(p, off)
}

func (m *FileMemory) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return syncFile(m.f)
}

// Close flushes, unlocks and closes the file. It is idempotent.
func (m *FileMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	err := syncFile(m.f)
	if unlockErr := unlockFile(m.f); unlockErr != nil && err == nil {
		err = unlockErr
	}
	if closeErr := m.f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
