package memory

import "sync"

// mailbox runs queued callbacks one at a time, in push order, on its own
// goroutine. push never blocks, so callbacks may write back to the store.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
	done   chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	mb := &mailbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go mb.run()
	return mb
}

func (mb *mailbox) push(fn func()) {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return
	}
	mb.queue = append(mb.queue, fn)
	mb.mu.Unlock()

	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

func (mb *mailbox) close() {
	mb.mu.Lock()
	if !mb.closed {
		mb.closed = true
		mb.queue = nil
		close(mb.done)
	}
	mb.mu.Unlock()
}

func (mb *mailbox) run() {
	for {
		select {
		case <-mb.done:
			return
		case <-mb.signal:
		}

		for {
			mb.mu.Lock()
			if mb.closed || len(mb.queue) == 0 {
				mb.mu.Unlock()
				break
			}
			fn := mb.queue[0]
			mb.queue = mb.queue[1:]
			mb.mu.Unlock()

			fn()
		}
	}
}
