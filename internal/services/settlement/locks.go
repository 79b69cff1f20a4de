package settlement

import (
	"sync"

	"github.com/google/uuid"
)

// poolLockTable serializes balance mutations per pool across goroutines
// inside one process. The database row locks protect against other
// processes; this keeps in-process contention off the database
type poolLockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newPoolLockTable() *poolLockTable {
	return &poolLockTable{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (t *poolLockTable) get(id uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.locks[id]
	if !ok {
		m = &sync.Mutex{}
		t.locks[id] = m
	}
	return m
}

// acquire locks the given pools in sorted order and returns the release func
func (t *poolLockTable) acquire(ids []uuid.UUID) func() {
	ordered := sortedCopy(ids)
	held := make([]*sync.Mutex, 0, len(ordered))
	seen := make(map[uuid.UUID]struct{}, len(ordered))
	for _, id := range ordered {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		m := t.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
