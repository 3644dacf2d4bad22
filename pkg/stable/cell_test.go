package stable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell(t *testing.T) {
	mem := NewBuffer()
	m := newTestManager(t, mem)

	c, err := InitCell(m.Partition(0), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.Get())

	prev, err := c.Set(41)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), prev)
	prev, err = c.Set(42)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), prev)

	// The initial value only applies to an empty partition.
	reopened, err := InitCell(newTestManager(t, mem).Partition(0), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), reopened.Get())
}

func TestCellRejectsForeignPartition(t *testing.T) {
	m := newTestManager(t, NewBuffer())
	p := m.Partition(1)
	require.NoError(t, p.Grow(16))

	_, err := InitCell(p, 0)
	require.ErrorIs(t, err, ErrInvalidMagic)
}
