package scheduler

import "sync"

// SlotTable tracks in-flight builds per server in memory. Capacity is the
// number of concurrent builds a server accepts; claims beyond it are
// refused until a slot is released.
type SlotTable struct {
	mu       sync.Mutex
	capacity int
	used     map[string]int
}

func NewSlotTable(capacity int) *SlotTable {
	if capacity < 1 {
		capacity = 1
	}
	return &SlotTable{
		capacity: capacity,
		used:     map[string]int{},
	}
}

// Claim takes a slot on the server. Returns false when the server is full.
func (t *SlotTable) Claim(serverID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.used[serverID] >= t.capacity {
		return false
	}
	t.used[serverID]++
	return true
}

// Release frees a previously claimed slot.
func (t *SlotTable) Release(serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.used[serverID] > 0 {
		t.used[serverID]--
	}
	if t.used[serverID] == 0 {
		delete(t.used, serverID)
	}
}

// Used returns the number of claimed slots on the server.
func (t *SlotTable) Used(serverID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used[serverID]
}
