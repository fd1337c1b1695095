package chat

import "sync"

// conversationLocks serializes lifecycle mutations per conversation so a
// concurrent send and delete cannot race the last-message pointer.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[int]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[int]*entry)}
}

// lock acquires the mutex for the conversation and returns its unlock func.
func (c *conversationLocks) lock(conversationID int) func() {
	c.mu.Lock()
	e, ok := c.locks[conversationID]
	if !ok {
		e = &entry{}
		c.locks[conversationID] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		c.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(c.locks, conversationID)
		}
		c.mu.Unlock()
	}
}
