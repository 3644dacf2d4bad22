package stable

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Codec converts values to and from their stored bytes.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Entry is a key/value pair returned by Map.Iterate.
type Entry[V any] struct {
	Key   uint64
	Value V
}

const (
	mapMagic      = "CSKV"
	mapVersion    = 1
	mapHeaderSize = 32

	// state(1) key(8) length(4) crc(4)
	slotMetaSize = 17

	slotFree = 0
	slotLive = 1
)

// Map is an ordered map from uint64 keys to values of type V, stored in one
// partition as fixed-size slots.
//
// Header layout:
//
//	[0:4]   magic "CSKV"
//	[4:8]   version
//	[8:12]  max value size
//	[16:24] slot count
//
// Slot layout: state(1) key(8) length(4) crc32(4) value(max value size).
// The key set and slot positions are held in memory and rebuilt on load.
type Map[V any] struct {
	p            *Partition
	codec        Codec[V]
	maxValueSize int
	slotSize     int64
	slotCount    uint64
	index        map[uint64]uint64
	keys         *roaring64.Bitmap
	free         []uint64
}

// InitMap loads the map stored in p, or formats p when it is empty.
func InitMap[V any](p *Partition, codec Codec[V], maxValueSize int) (*Map[V], error) {
	if maxValueSize <= 0 {
		return nil, fmt.Errorf("invalid max value size %d", maxValueSize)
	}

	m := &Map[V]{
		p:            p,
		codec:        codec,
		maxValueSize: maxValueSize,
		slotSize:     int64(slotMetaSize + maxValueSize),
		index:        make(map[uint64]uint64),
		keys:         roaring64.NewBitmap(),
	}

	if p.Size() == 0 {
		if err := m.format(); err != nil {
			return nil, fmt.Errorf("failed to format map partition %d: %w", p.ID(), err)
		}
		return m, nil
	}

	if err := m.load(); err != nil {
		return nil, fmt.Errorf("failed to load map partition %d: %w", p.ID(), err)
	}
	return m, nil
}

func (m *Map[V]) format() error {
	if err := m.p.Grow(mapHeaderSize); err != nil {
		return err
	}
	header := make([]byte, mapHeaderSize)
	copy(header[0:4], mapMagic)
	binary.LittleEndian.PutUint32(header[4:8], mapVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(m.maxValueSize))
	if _, err := m.p.WriteAt(header, 0); err != nil {
		return err
	}
	return m.p.Flush()
}

func (m *Map[V]) load() error {
	header := make([]byte, mapHeaderSize)
	if _, err := m.p.ReadAt(header, 0); err != nil {
		return err
	}
	if string(header[0:4]) != mapMagic {
		return fmt.Errorf("%w: %q", ErrInvalidMagic, header[0:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:8]); v != mapVersion {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	if size := int(binary.LittleEndian.Uint32(header[8:12])); size != m.maxValueSize {
		return fmt.Errorf("%w: max value size %d, expected %d", ErrCorrupted, size, m.maxValueSize)
	}

	m.slotCount = binary.LittleEndian.Uint64(header[16:24])
	if end := m.slotOffset(m.slotCount); end > m.p.Size() {
		return fmt.Errorf("%w: %d slots do not fit in %d bytes", ErrCorrupted, m.slotCount, m.p.Size())
	}

	meta := make([]byte, slotMetaSize)
	for slot := uint64(0); slot < m.slotCount; slot++ {
		if _, err := m.p.ReadAt(meta, m.slotOffset(slot)); err != nil {
			return err
		}
		switch meta[0] {
		case slotFree:
			m.free = append(m.free, slot)
		case slotLive:
			key := binary.LittleEndian.Uint64(meta[1:9])
			if _, dup := m.index[key]; dup {
				return fmt.Errorf("%w: key %d stored twice", ErrCorrupted, key)
			}
			m.index[key] = slot
			m.keys.Add(key)
		default:
			return fmt.Errorf("%w: slot %d has state %d", ErrCorrupted, slot, meta[0])
		}
	}
	return nil
}

// Len returns the number of keys.
func (m *Map[V]) Len() uint64 {
	return m.keys.GetCardinality()
}

// Contains reports whether key is present.
func (m *Map[V]) Contains(key uint64) bool {
	_, ok := m.index[key]
	return ok
}

// Get returns the value for key. The bool is false when the key is absent.
func (m *Map[V]) Get(key uint64) (V, bool, error) {
	var zero V
	slot, ok := m.index[key]
	if !ok {
		return zero, false, nil
	}
	v, err := m.readSlot(key, slot)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Insert stores value under key and returns the previous value, if any.
// The value is encoded before anything is written, so an encoding failure
// leaves the map unchanged.
func (m *Map[V]) Insert(key uint64, value V) (V, bool, error) {
	var zero V

	data, err := m.codec.Encode(value)
	if err != nil {
		return zero, false, err
	}
	if len(data) > m.maxValueSize {
		return zero, false, fmt.Errorf("%w: %d > %d bytes", ErrValueTooLarge, len(data), m.maxValueSize)
	}

	if slot, ok := m.index[key]; ok {
		prev, err := m.readSlot(key, slot)
		if err != nil {
			return zero, false, err
		}
		if err := m.writeSlot(slot, key, data); err != nil {
			return zero, false, err
		}
		return prev, true, m.p.Flush()
	}

	slot, err := m.allocSlot()
	if err != nil {
		return zero, false, err
	}
	if err := m.writeSlot(slot, key, data); err != nil {
		return zero, false, err
	}
	if slot == m.slotCount {
		if err := m.writeSlotCount(m.slotCount + 1); err != nil {
			return zero, false, err
		}
	} else {
		m.free = m.free[:len(m.free)-1]
	}

	m.index[key] = slot
	m.keys.Add(key)
	return zero, false, m.p.Flush()
}

// Remove deletes key and returns the removed value, if any.
func (m *Map[V]) Remove(key uint64) (V, bool, error) {
	var zero V
	slot, ok := m.index[key]
	if !ok {
		return zero, false, nil
	}

	prev, err := m.readSlot(key, slot)
	if err != nil {
		return zero, false, err
	}
	if _, err := m.p.WriteAt([]byte{slotFree}, m.slotOffset(slot)); err != nil {
		return zero, false, fmt.Errorf("failed to free slot %d: %w", slot, err)
	}

	delete(m.index, key)
	m.keys.Remove(key)
	m.free = append(m.free, slot)
	return prev, true, m.p.Flush()
}

// Iterate returns every entry in ascending key order.
func (m *Map[V]) Iterate() ([]Entry[V], error) {
	entries := make([]Entry[V], 0, m.keys.GetCardinality())
	it := m.keys.Iterator()
	for it.HasNext() {
		key := it.Next()
		v, err := m.readSlot(key, m.index[key])
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry[V]{Key: key, Value: v})
	}
	return entries, nil
}

func (m *Map[V]) slotOffset(slot uint64) int64 {
	return mapHeaderSize + int64(slot)*m.slotSize
}

// allocSlot returns a reusable free slot or the next slot past the end,
// growing the partition when needed. The free list is popped by the caller
// once the slot has been written.
func (m *Map[V]) allocSlot() (uint64, error) {
	if n := len(m.free); n > 0 {
		return m.free[n-1], nil
	}
	slot := m.slotCount
	if end := m.slotOffset(slot + 1); end > m.p.Size() {
		if err := m.p.Grow(end - m.p.Size()); err != nil {
			return 0, fmt.Errorf("failed to grow map partition %d: %w", m.p.ID(), err)
		}
	}
	return slot, nil
}

func (m *Map[V]) writeSlot(slot, key uint64, data []byte) error {
	buf := make([]byte, slotMetaSize+len(data))
	buf[0] = slotLive
	binary.LittleEndian.PutUint64(buf[1:9], key)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(len(data)))
	binary.LittleEndian.PutUint32(buf[13:17], crc32.ChecksumIEEE(data))
	copy(buf[slotMetaSize:], data)
	if _, err := m.p.WriteAt(buf, m.slotOffset(slot)); err != nil {
		return fmt.Errorf("failed to write slot %d: %w", slot, err)
	}
	return nil
}

func (m *Map[V]) writeSlotCount(n uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	if _, err := m.p.WriteAt(buf[:], 16); err != nil {
		return fmt.Errorf("failed to write slot count: %w", err)
	}
	m.slotCount = n
	return nil
}

func (m *Map[V]) readSlot(key, slot uint64) (V, error) {
	var zero V

	meta := make([]byte, slotMetaSize)
	off := m.slotOffset(slot)
	if _, err := m.p.ReadAt(meta, off); err != nil {
		return zero, fmt.Errorf("failed to read slot %d: %w", slot, err)
	}
	if meta[0] != slotLive || binary.LittleEndian.Uint64(meta[1:9]) != key {
		return zero, fmt.Errorf("%w: slot %d does not hold key %d", ErrCorrupted, slot, key)
	}
	length := binary.LittleEndian.Uint32(meta[9:13])
	if int(length) > m.maxValueSize {
		return zero, fmt.Errorf("%w: slot %d length %d", ErrCorrupted, slot, length)
	}

	data := make([]byte, length)
	if _, err := m.p.ReadAt(data, off+slotMetaSize); err != nil {
		return zero, fmt.Errorf("failed to read slot %d: %w", slot, err)
	}
	want := binary.LittleEndian.Uint32(meta[13:17])
	if got := crc32.ChecksumIEEE(data); got != want {
		return zero, &ChecksumMismatchError{Key: key, Expected: want, Actual: got}
	}

	v, err := m.codec.Decode(data)
	if err != nil {
		return zero, fmt.Errorf("failed to decode key %d: %w", key, err)
	}
	return v, nil
}
