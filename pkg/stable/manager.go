package stable

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Durability controls when writes reach stable storage.
type Durability int

const (
	// DurabilitySync flushes the memory after every completed mutation.
	DurabilitySync Durability = iota
	// DurabilityAsync relies on the OS page cache and flushes on Close.
	DurabilityAsync
)

func (d Durability) String() string {
	switch d {
	case DurabilitySync:
		return "sync"
	case DurabilityAsync:
		return "async"
	default:
		return fmt.Sprintf("durability(%d)", int(d))
	}
}

// ParseDurability maps "sync" and "async" to a Durability.
func ParseDurability(s string) (Durability, error) {
	switch s {
	case "sync", "":
		return DurabilitySync, nil
	case "async":
		return DurabilityAsync, nil
	default:
		return 0, fmt.Errorf("unknown durability %q", s)
	}
}

// PartitionID identifies a partition. Ids are never released, so an id that
// was used once must not be handed to a different collection later.
type PartitionID uint8

const (
	MaxPartitions     = 255
	MaxBuckets        = 32768
	DefaultBucketSize = 1 << 20

	managerMagic   = "CSMM"
	managerVersion = 1

	// magic(4) version(4) bucketSize(8) allocated(4) reserved(4)
	managerFixedSize  = 24
	managerHeaderSize = 64 << 10
	ownerTableOffset  = managerFixedSize

	unallocatedBucket = 0xFF
)

// Options configures a Manager.
type Options struct {
	// BucketSize is used only when the memory is initialized. An existing
	// memory keeps the bucket size recorded in its header.
	BucketSize int64
	Durability Durability
}

func DefaultOptions() Options {
	return Options{
		BucketSize: DefaultBucketSize,
		Durability: DurabilitySync,
	}
}

// Manager splits a Memory into partitions.
//
// Header layout at offset 0:
//
//	[0:4]   magic "CSMM"
//	[4:8]   version
//	[8:16]  bucket size
//	[16:20] allocated bucket count
//	[24:24+MaxBuckets] owner partition of each bucket (0xFF = free)
//
// Bucket i occupies [managerHeaderSize + i*bucketSize, +bucketSize).
type Manager struct {
	mu         sync.Mutex
	mem        Memory
	durability Durability
	bucketSize int64
	allocated  uint32
	owners     [MaxBuckets]byte
	buckets    [MaxPartitions][]uint32
	partitions map[PartitionID]*Partition
}

// NewManager initializes an empty memory or loads the layout of an existing one.
func NewManager(mem Memory, opts Options) (*Manager, error) {
	if opts.BucketSize <= 0 {
		opts.BucketSize = DefaultBucketSize
	}

	m := &Manager{
		mem:        mem,
		durability: opts.Durability,
		partitions: make(map[PartitionID]*Partition),
	}

	if mem.Size() == 0 {
		if err := m.format(opts.BucketSize); err != nil {
			return nil, fmt.Errorf("failed to initialize memory: %w", err)
		}
		return m, nil
	}

	if err := m.load(); err != nil {
		return nil, fmt.Errorf("failed to load memory layout: %w", err)
	}
	return m, nil
}

func (m *Manager) format(bucketSize int64) error {
	if err := m.mem.Grow(managerHeaderSize); err != nil {
		return err
	}

	for i := range m.owners {
		m.owners[i] = unallocatedBucket
	}
	m.bucketSize = bucketSize

	header := make([]byte, managerFixedSize)
	copy(header[0:4], managerMagic)
	binary.LittleEndian.PutUint32(header[4:8], managerVersion)
	binary.LittleEndian.PutUint64(header[8:16], uint64(bucketSize))
	binary.LittleEndian.PutUint32(header[16:20], 0)
	if _, err := m.mem.WriteAt(header, 0); err != nil {
		return err
	}
	if _, err := m.mem.WriteAt(m.owners[:], ownerTableOffset); err != nil {
		return err
	}
	return m.mem.Sync()
}

func (m *Manager) load() error {
	if m.mem.Size() < managerHeaderSize {
		return fmt.Errorf("%w: memory smaller than header (%d < %d)", ErrCorrupted, m.mem.Size(), managerHeaderSize)
	}

	header := make([]byte, managerFixedSize)
	if _, err := m.mem.ReadAt(header, 0); err != nil {
		return err
	}
	if string(header[0:4]) != managerMagic {
		return fmt.Errorf("%w: %q", ErrInvalidMagic, header[0:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:8]); v != managerVersion {
		return fmt.Errorf("%w: %d (expected %d)", ErrInvalidVersion, v, managerVersion)
	}

	m.bucketSize = int64(binary.LittleEndian.Uint64(header[8:16]))
	m.allocated = binary.LittleEndian.Uint32(header[16:20])
	if m.bucketSize <= 0 {
		return fmt.Errorf("%w: bucket size %d", ErrCorrupted, m.bucketSize)
	}
	if m.allocated > MaxBuckets {
		return fmt.Errorf("%w: allocated bucket count %d", ErrCorrupted, m.allocated)
	}
	if need := m.bucketOffset(m.allocated); m.mem.Size() < need {
		return fmt.Errorf("%w: memory truncated (%d < %d)", ErrCorrupted, m.mem.Size(), need)
	}

	if _, err := m.mem.ReadAt(m.owners[:], ownerTableOffset); err != nil {
		return err
	}

	for i := uint32(0); i < MaxBuckets; i++ {
		owner := m.owners[i]
		if i >= m.allocated {
			// A grow that did not reach the allocated counter is discarded.
			m.owners[i] = unallocatedBucket
			continue
		}
		if owner == unallocatedBucket {
			return fmt.Errorf("%w: bucket %d below allocated mark has no owner", ErrCorrupted, i)
		}
		m.buckets[owner] = append(m.buckets[owner], i)
	}
	return nil
}

// Partition returns the handle for id. Repeated calls return the same handle
// and, across restarts, address the same bytes.
func (m *Manager) Partition(id PartitionID) *Partition {
	if id >= MaxPartitions {
		panic(fmt.Sprintf("stable: partition id %d out of range", id))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.partitions[id]; ok {
		return p
	}
	p := &Partition{id: id, m: m}
	m.partitions[id] = p
	return p
}

// BucketSize returns the bucket size in bytes.
func (m *Manager) BucketSize() int64 {
	return m.bucketSize
}

// AllocatedBuckets returns how many buckets have been claimed by partitions.
func (m *Manager) AllocatedBuckets() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocated
}

func (m *Manager) Durability() Durability {
	return m.durability
}

// Sync flushes the underlying memory.
func (m *Manager) Sync() error {
	return m.mem.Sync()
}

// Close flushes and closes the underlying memory.
func (m *Manager) Close() error {
	if err := m.mem.Sync(); err != nil {
		m.mem.Close()
		return err
	}
	return m.mem.Close()
}

func (m *Manager) bucketOffset(bucket uint32) int64 {
	return managerHeaderSize + int64(bucket)*m.bucketSize
}

// grow claims enough buckets for id to extend by delta bytes. Caller holds m.mu.
func (m *Manager) grow(id PartitionID, delta int64) error {
	if delta <= 0 {
		return nil
	}
	n := uint32((delta + m.bucketSize - 1) / m.bucketSize)
	if m.allocated+n > MaxBuckets {
		return fmt.Errorf("%w: partition %d needs %d buckets, %d free", ErrNoSpace, id, n, MaxBuckets-m.allocated)
	}

	end := m.bucketOffset(m.allocated + n)
	if size := m.mem.Size(); size < end {
		if err := m.mem.Grow(end - size); err != nil {
			return fmt.Errorf("failed to grow memory: %w", err)
		}
	}

	first := m.allocated
	for i := first; i < first+n; i++ {
		m.owners[i] = byte(id)
	}
	if _, err := m.mem.WriteAt(m.owners[first:first+n], ownerTableOffset+int64(first)); err != nil {
		return err
	}

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], first+n)
	if _, err := m.mem.WriteAt(count[:], 16); err != nil {
		return err
	}

	// The allocation must be durable before any data lands in the new buckets.
	if err := m.mem.Sync(); err != nil {
		return err
	}

	m.allocated = first + n
	for i := first; i < first+n; i++ {
		m.buckets[id] = append(m.buckets[id], i)
	}
	return nil
}

// Partition is an independently growable virtual region of a Manager's memory.
// Its address space is the concatenation of its buckets in ascending order.
type Partition struct {
	id PartitionID
	m  *Manager
}

func (p *Partition) ID() PartitionID {
	return p.id
}

// Size returns the partition size in bytes. A partition that was never grown
// has size zero.
func (p *Partition) Size() int64 {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	return p.size()
}

func (p *Partition) size() int64 {
	return int64(len(p.m.buckets[p.id])) * p.m.bucketSize
}

// Grow extends the partition by at least delta bytes, rounded up to whole buckets.
func (p *Partition) Grow(delta int64) error {
	if delta < 0 {
		return fmt.Errorf("negative grow delta %d", delta)
	}
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	return p.m.grow(p.id, delta)
}

func (p *Partition) ReadAt(b []byte, off int64) (int, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	return p.transfer(b, off, p.m.mem.ReadAt)
}

func (p *Partition) WriteAt(b []byte, off int64) (int, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	return p.transfer(b, off, p.m.mem.WriteAt)
}

// Flush makes completed writes durable when the manager runs in sync mode.
func (p *Partition) Flush() error {
	if p.m.durability != DurabilitySync {
		return nil
	}
	return p.m.mem.Sync()
}

func (p *Partition) transfer(b []byte, off int64, op func([]byte, int64) (int, error)) (int, error) {
	if err := checkBounds(off, len(b), p.size()); err != nil {
		return 0, fmt.Errorf("partition %d: %w", p.id, err)
	}

	buckets := p.m.buckets[p.id]
	bs := p.m.bucketSize
	done := 0
	for done < len(b) {
		pos := off + int64(done)
		idx := pos / bs
		within := pos % bs
		chunk := int(min(int64(len(b)-done), bs-within))

		n, err := op(b[done:done+chunk], p.m.bucketOffset(buckets[idx])+within)
		done += n
		if err != nil {
			return done, err
		}
	}
	return done, nil
}
