package session

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Locker serializes work per user while letting different users proceed in parallel.
type Locker struct {
	locks *xsync.MapOf[int64, *sync.Mutex]
}

func NewLocker() *Locker {
	return &Locker{locks: xsync.NewMapOf[int64, *sync.Mutex]()}
}

// Lock blocks until the user's lock is held and returns the matching unlock.
func (l *Locker) Lock(userID int64) func() {
	mu, _ := l.locks.LoadOrCompute(userID, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}
