// internal/websocket/presence.go
package websocket

import "sync"

// PresenceTracker records which operators currently have a customer thread
// open. A human-owned thread with no viewer is surfaced on the attention
// feed, so accuracy here drives the operator dashboards.
type PresenceTracker struct {
	mu sync.RWMutex
	// customer ID -> set of operator identity IDs viewing the thread
	viewers map[string]map[string]bool
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		viewers: make(map[string]map[string]bool),
	}
}

// MarkViewing records an operator opening a thread.
func (t *PresenceTracker) MarkViewing(customerID, operatorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.viewers[customerID] == nil {
		t.viewers[customerID] = make(map[string]bool)
	}
	t.viewers[customerID][operatorID] = true
}

// StopViewing records an operator closing a thread.
func (t *PresenceTracker) StopViewing(customerID, operatorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ops, ok := t.viewers[customerID]; ok {
		delete(ops, operatorID)
		if len(ops) == 0 {
			delete(t.viewers, customerID)
		}
	}
}

// DropOperator clears every view held by an operator. Wired to the hub's
// disconnect hook so a dropped dashboard does not keep threads "viewed".
func (t *PresenceTracker) DropOperator(operatorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for customerID, ops := range t.viewers {
		delete(ops, operatorID)
		if len(ops) == 0 {
			delete(t.viewers, customerID)
		}
	}
}

// IsViewing reports whether any operator has the thread open.
func (t *PresenceTracker) IsViewing(customerID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.viewers[customerID]) > 0
}
