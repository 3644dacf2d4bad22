//go:build linux || darwin || freebsd || openbsd || netbsd

package stable

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileMemoryExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.mem")

	m, err := OpenFile(path)
	require.NoError(t, err)

	_, err = OpenFile(path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, m.Close())

	m, err = OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, m.Close())
}
