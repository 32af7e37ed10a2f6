package kmsg

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Kernel ring buffer device read through non-blocking reads and poll
type DeviceSource struct {
	path        string
	pollTimeout time.Duration
	mu          sync.Mutex
	fd          int
	open        bool
}

// New source for the kernel log device at path (not opened yet)
func NewDeviceSource(path string, pollTimeout time.Duration) (new *DeviceSource) {
	new = &DeviceSource{
		path:        path,
		pollTimeout: pollTimeout,
		fd:          -1,
	}
	return
}

// Opens the device, keeping an existing handle
func (source *DeviceSource) Open() (err error) {
	source.mu.Lock()
	defer source.mu.Unlock()

	if source.open {
		return
	}

	fd, err := unix.Open(source.path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		err = fmt.Errorf("failed to open %s: %v", source.path, err)
		return
	}
	source.fd = fd
	source.open = true
	return
}

// Waits up to the poll timeout for one record
func (source *DeviceSource) Read(buf []byte) (n int, err error) {
	source.mu.Lock()
	fd, open := source.fd, source.open
	source.mu.Unlock()

	if !open {
		err = ErrNotOpen
		return
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	ready, err := unix.Poll(fds, int(source.pollTimeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			err = ErrWouldBlock
			return
		}
		err = fmt.Errorf("failed to poll %s: %v", source.path, err)
		return
	}
	if ready == 0 {
		err = ErrNoData
		return
	}

	n, err = unix.Read(fd, buf)
	if err != nil {
		// EPIPE reports records overwritten before we read them, the next read resumes
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.EPIPE) {
			err = ErrWouldBlock
			n = 0
			return
		}
		err = fmt.Errorf("failed to read %s: %v", source.path, err)
		n = 0
		return
	}
	if n == 0 {
		err = ErrNoData
		return
	}
	return
}

func (source *DeviceSource) Close() (err error) {
	source.mu.Lock()
	defer source.mu.Unlock()

	if !source.open {
		return
	}
	err = unix.Close(source.fd)
	source.fd = -1
	source.open = false
	if err != nil {
		err = fmt.Errorf("failed to close %s: %v", source.path, err)
		return
	}
	return
}
