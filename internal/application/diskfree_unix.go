//go:build unix

package application

import "golang.org/x/sys/unix"

// diskFreeBytes returns the free space on the filesystem holding dir.
func diskFreeBytes(dir string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, false
	}
	return st.Bavail * uint64(st.Bsize), true
}
