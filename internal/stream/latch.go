package stream

import "sync"

// Latch is a single-assignment failure cell scoped to one run.
type Latch struct {
	mu  sync.Mutex
	set bool
	err error
}

// Fail records err if no error has been recorded yet. It reports whether
// err became the run's failure.
func (l *Latch) Fail(err error) bool {
	if err == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.set {
		return false
	}
	l.set = true
	l.err = err
	return true
}

// Err returns the recorded failure, if any.
func (l *Latch) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Failed reports whether a failure has been recorded.
func (l *Latch) Failed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set
}
