//go:build linux

package disk

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blockDeviceSize queries the size of a raw block device via the
// BLKGETSIZE64 ioctl, which reports the true device size even though
// os.Stat reports 0 for block special files.
func blockDeviceSize(file *os.File) (int64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return int64(size), nil
}
