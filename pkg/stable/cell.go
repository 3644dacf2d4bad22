package stable

import (
	"encoding/binary"
	"fmt"
)

const (
	cellMagic   = "CSID"
	cellVersion = 1
	cellSize    = 16 // magic(4) version(4) value(8)
)

// Cell is a single uint64 persisted in its own partition.
type Cell struct {
	p     *Partition
	value uint64
}

// InitCell loads the cell stored in p, or writes initial if p is empty.
func InitCell(p *Partition, initial uint64) (*Cell, error) {
	c := &Cell{p: p}

	if p.Size() == 0 {
		if err := p.Grow(cellSize); err != nil {
			return nil, fmt.Errorf("failed to grow cell partition: %w", err)
		}
		buf := make([]byte, cellSize)
		copy(buf[0:4], cellMagic)
		binary.LittleEndian.PutUint32(buf[4:8], cellVersion)
		binary.LittleEndian.PutUint64(buf[8:16], initial)
		if _, err := p.WriteAt(buf, 0); err != nil {
			return nil, fmt.Errorf("failed to write cell: %w", err)
		}
		if err := p.Flush(); err != nil {
			return nil, err
		}
		c.value = initial
		return c, nil
	}

	buf := make([]byte, cellSize)
	if _, err := p.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("failed to read cell: %w", err)
	}
	if string(buf[0:4]) != cellMagic {
		return nil, fmt.Errorf("partition %d: %w: %q", p.ID(), ErrInvalidMagic, buf[0:4])
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != cellVersion {
		return nil, fmt.Errorf("partition %d: %w: %d", p.ID(), ErrInvalidVersion, v)
	}
	c.value = binary.LittleEndian.Uint64(buf[8:16])
	return c, nil
}

// Get returns the current value.
func (c *Cell) Get() uint64 {
	return c.value
}

// Set persists v and returns the previous value.
func (c *Cell) Set(v uint64) (uint64, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if _, err := c.p.WriteAt(buf[:], 8); err != nil {
		return c.value, fmt.Errorf("failed to write cell: %w", err)
	}
	if err := c.p.Flush(); err != nil {
		return c.value, err
	}
	prev := c.value
	c.value = v
	return prev, nil
}
