package imagepath

import (
	"errors"
	"syscall"
)

// isCrossDevice reports whether err is the OS's "invalid cross-device link"
// error, which os.Rename returns when src and dst straddle filesystems.
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
