package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceTracker(t *testing.T) {
	tr := NewPresenceTracker()

	assert.False(t, tr.IsViewing("cust-1"))

	tr.MarkViewing("cust-1", "op-1")
	tr.MarkViewing("cust-1", "op-2")
	assert.True(t, tr.IsViewing("cust-1"))

	tr.StopViewing("cust-1", "op-1")
	assert.True(t, tr.IsViewing("cust-1"))

	tr.StopViewing("cust-1", "op-2")
	assert.False(t, tr.IsViewing("cust-1"))
}

func TestPresenceTrackerDropOperator(t *testing.T) {
	tr := NewPresenceTracker()

	tr.MarkViewing("cust-1", "op-1")
	tr.MarkViewing("cust-2", "op-1")
	tr.MarkViewing("cust-2", "op-2")

	tr.DropOperator("op-1")

	assert.False(t, tr.IsViewing("cust-1"))
	assert.True(t, tr.IsViewing("cust-2"))
}
