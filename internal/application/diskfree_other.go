//go:build !unix

package application

// diskFreeBytes is unavailable on this platform; callers treat that as
// "unknown" and skip the disk space blocker.
func diskFreeBytes(string) (uint64, bool) {
	return 0, false
}
