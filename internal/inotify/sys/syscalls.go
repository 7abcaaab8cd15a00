//go:build linux

package sys

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// InotifySyscallsUNIX talks to the kernel inotify facility directly. All
// other access to the event stream goes through this type so tests can
// substitute a scripted fake.
type InotifySyscallsUNIX struct{}

func (isu *InotifySyscallsUNIX) Init() (int, error) {
	fd, errno := unix.InotifyInit1(unix.IN_CLOEXEC)
	if fd < 0 {
		return fd, fmt.Errorf("errno: %d", errno)
	}
	return fd, nil
}

func (isu *InotifySyscallsUNIX) AddWatch(fd int, path string, mask uint32) (int, error) {
	wd, errno := unix.InotifyAddWatch(fd, path, mask)
	if wd < 0 {
		return wd, fmt.Errorf("errno: %d", errno)
	}
	return wd, nil
}

func (isu *InotifySyscallsUNIX) RmWatch(fd int, wd int) error {
	if _, errno := unix.InotifyRmWatch(fd, uint32(wd)); errno != nil {
		return fmt.Errorf("errno: %d", errno)
	}
	return nil
}

// Pending reports how many bytes are immediately readable from fd.
// TIOCINQ is Linux's spelling of the FIONREAD ioctl.
func (isu *InotifySyscallsUNIX) Pending(fd int) (int, error) {
	n, errno := unix.IoctlGetInt(fd, unix.TIOCINQ)
	if errno != nil {
		return 0, fmt.Errorf("errno: %d", errno)
	}
	return n, nil
}

// Wait blocks until fd becomes readable or the timeout expires. A negative
// timeout waits indefinitely, zero returns immediately. An interrupted wait
// reports not-ready so the caller can get back to its loop.
func (isu *InotifySyscallsUNIX) Wait(fd int, timeout int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, errno := unix.Poll(fds, timeout)
	if errno == unix.EINTR {
		return false, nil
	}
	if errno != nil {
		return false, fmt.Errorf("errno: %d", errno)
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

func (isu *InotifySyscallsUNIX) Read(fd int, buf []byte) (int, error) {
	n, errno := unix.Read(fd, buf)
	if n < 0 {
		return n, fmt.Errorf("errno: %d", errno)
	}
	return n, nil
}

func (isu *InotifySyscallsUNIX) Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return err
	}
	return nil
}
