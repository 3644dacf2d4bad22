//go:build !linux

package stable

import "os"

func syncFile(f *os.File) error {
	return f.Sync()
}
