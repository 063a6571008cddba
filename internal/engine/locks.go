package engine

import "sync"

// caseLocks hands out one mutex per case id. Entries are reference counted
// and dropped when the last holder releases, so idle cases cost nothing.
type caseLocks struct {
	mu    sync.Mutex
	locks map[int64]*caseLock
}

type caseLock struct {
	mu   sync.Mutex
	refs int
}

func newCaseLocks() *caseLocks {
	return &caseLocks{locks: make(map[int64]*caseLock)}
}

// lock blocks until the caller holds caseID and returns the release func.
func (c *caseLocks) lock(caseID int64) func() {
	if c == nil {
		return func() {}
	}
	c.mu.Lock()
	l, ok := c.locks[caseID]
	if !ok {
		l = &caseLock{}
		c.locks[caseID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, caseID)
		}
		c.mu.Unlock()
	}
}

func (c *caseLocks) held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
