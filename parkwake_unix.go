//go:build unix

package testscheduler

import "golang.org/x/sys/unix"

// parker on unix platforms blocks the calling OS thread on a real eventfd,
// grounded on the teacher event loop's wakeup_linux.go/wakeup_darwin.go
// self-pipe/eventfd wake mechanism — generalized from "wake a blocked
// epoll" to "wake a parked scheduler".
type parker struct {
	fd int
}

func newParker() *parker {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		// Fall back to a parker that never actually sleeps; AllowParking
		// tests on a platform where eventfd creation fails (e.g. an
		// exhausted fd table) degrade to busy-looping rather than hanging
		// the process outright.
		return &parker{fd: -1}
	}
	return &parker{fd: fd}
}

// wait blocks until signal is called from any goroutine.
func (p *parker) wait() {
	if p.fd < 0 {
		return
	}
	var buf [8]byte
	for {
		_, err := unix.Read(p.fd, buf[:])
		if err != unix.EINTR {
			return
		}
	}
}

// signal wakes a parked wait. Safe to call concurrently with wait, and
// from any thread.
func (p *parker) signal() {
	if p.fd < 0 {
		return
	}
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(p.fd, buf[:])
}
