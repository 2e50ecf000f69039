//go:build !linux

package disk

import (
	"errors"
	"os"
)

// blockDeviceSize has no portable implementation outside Linux; callers
// fall back to seek-to-end.
func blockDeviceSize(*os.File) (int64, error) {
	return 0, errors.New("disk: block device size ioctl not supported on this platform")
}
