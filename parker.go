package testscheduler

// parker is the OS-thread-sleep primitive used by step() when the
// scheduler parks (no runnable job, no pending timer) while a blocking
// call is outstanding and Config.AllowParking is true. Its wait/signal
// pair must be safe to call from any goroutine, since an external waker (a
// library driving its own I/O on its own thread) may call signal while the
// scheduler's driver thread is in wait.
//
// The concrete implementation is platform-dependent: parkwake_unix.go
// backs it with a real eventfd, generalizing the teacher event loop's
// wakeup_linux.go/wakeup_darwin.go self-pipe wake mechanism from "wake a
// blocked epoll" to "wake a parked scheduler"; parkwake_other.go falls
// back to a condition variable on platforms without eventfd, the same way
// the teacher's wakeup_windows.go falls back to IOCP instead of a pipe.
type parkerHandle interface {
	wait()
	signal()
}

var _ parkerHandle = (*parker)(nil)
