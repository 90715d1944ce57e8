//go:build !unix

package testscheduler

import "sync"

// parker on non-unix platforms falls back to a condition variable, the
// same way the teacher event loop's wakeup_windows.go falls back to IOCP
// completion posting instead of a self-pipe: no eventfd-equivalent wake
// primitive is needed, just a standard mutex+cond wait/signal pair.
type parker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending bool
}

func newParker() *parker {
	p := &parker{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *parker) wait() {
	p.mu.Lock()
	for !p.pending {
		p.cond.Wait()
	}
	p.pending = false
	p.mu.Unlock()
}

func (p *parker) signal() {
	p.mu.Lock()
	p.pending = true
	p.mu.Unlock()
	p.cond.Signal()
}
