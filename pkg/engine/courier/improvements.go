package courier

import (
	"sync"
)

// improvementFeed hands improvements to a handler on its own goroutine. push never blocks, so a slow
// handler can not stall the chains, and events keep the order they were pushed in.
type improvementFeed struct {
	mu      sync.Mutex
	pending []Improvement
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newImprovementFeed(handle func(Improvement)) *improvementFeed {
	f := &improvementFeed{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go f.run(handle)
	return f
}

func (f *improvementFeed) push(imp Improvement) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.pending = append(f.pending, imp)
	f.mu.Unlock()
	f.signal()
}

// close lets the handler finish the pending events and stop.
func (f *improvementFeed) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.signal()
}

// discard drops the events the handler has not taken yet.
func (f *improvementFeed) discard() {
	f.mu.Lock()
	f.pending = nil
	f.closed = true
	f.mu.Unlock()
	f.signal()
}

func (f *improvementFeed) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *improvementFeed) run(handle func(Improvement)) {
	defer close(f.done)
	for range f.wake {
		for {
			f.mu.Lock()
			if len(f.pending) == 0 {
				closed := f.closed
				f.mu.Unlock()
				if closed {
					return
				}
				break
			}
			imp := f.pending[0]
			f.pending = f.pending[1:]
			f.mu.Unlock()

			handle(imp)
		}
	}
}
