package loop

import (
	"sync"
)

// Executor schedules a function to run on the event loop
type Executor interface {
	// Exec queues fn for execution on the loop
	// false is returned if the loop has been stopped
	Exec(fn func()) bool
}

// Loop runs every queued function on a single goroutine
// All client state (snapshots, the pending transaction, decrypted cards) is only
// mutated from inside the loop, so none of it needs a lock
type Loop struct {
	execInRunLoop chan func()
	close         chan bool
	done          chan bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// New returns a new loop. Call Start() before queuing work
func New() *Loop {
	return &Loop{
		execInRunLoop: make(chan func(), 256),
		close:         make(chan bool),
		done:          make(chan bool),
	}
}

// Start starts the run loop
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.runLoop()
	})
}

func (l *Loop) runLoop() {
	defer close(l.done)

	for {
		select {
		case fn := <-l.execInRunLoop:
			fn()
		case <-l.close:
			return
		}
	}
}

// Exec queues fn to run on the loop
func (l *Loop) Exec(fn func()) bool {
	select {
	case <-l.close:
		return false
	default:
	}

	select {
	case l.execInRunLoop <- fn:
		return true
	case <-l.close:
		return false
	}
}

// Do runs fn on the loop and waits for it to return
// NOTE: must never be called from inside the loop
func (l *Loop) Do(fn func()) bool {
	finished := make(chan bool)
	if !l.Exec(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Stop terminates the run loop. Queued functions that have not run yet are dropped
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.close)
	})
}

// Done is closed once the run loop has exited
func (l *Loop) Done() <-chan bool {
	return l.done
}
