package application

import "sync"

// mentorLocks serializes booking admission and participant mutations per
// mentor. The set of non-terminal sessions for one mentor is the critical
// shared resource; holding the mentor's lock across the resolve-check-insert
// sequence closes the check-then-act race between concurrent bookings.
type mentorLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMentorLocks() *mentorLocks {
	return &mentorLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mentor's mutex and returns the release function.
func (m *mentorLocks) acquire(mentorID string) func() {
	m.mu.Lock()
	lock, ok := m.locks[mentorID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[mentorID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
