package service

import "sync"

// roomLocker hands out one mutex per room id. Entries are reference counted
// and dropped once no goroutine holds or waits on them.
type roomLocker struct {
	mu    sync.Mutex
	rooms map[int64]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocker() *roomLocker {
	return &roomLocker{rooms: make(map[int64]*roomLock)}
}

// Lock blocks until the caller holds roomID's lock and returns the matching unlock func.
func (l *roomLocker) Lock(roomID int64) func() {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.rooms, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
