package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventHeap_OrdersByTimestamp(t *testing.T) {
	h := NewEventHeap()
	h.Schedule(&VMStartupEvent{BaseEvent: newBaseEvent(3.0, EventTypeVMStartup, 1), VM: 0})
	h.Schedule(&VMStartupEvent{BaseEvent: newBaseEvent(1.0, EventTypeVMStartup, 2), VM: 1})
	h.Schedule(&VMStartupEvent{BaseEvent: newBaseEvent(2.0, EventTypeVMStartup, 3), VM: 2})

	assert.Equal(t, 1.0, h.PopNext().Timestamp())
	assert.Equal(t, 2.0, h.PopNext().Timestamp())
	assert.Equal(t, 3.0, h.PopNext().Timestamp())
	assert.Nil(t, h.PopNext())
}

func TestEventHeap_EqualTimestampsResolveFIFO(t *testing.T) {
	// GIVEN events scheduled at the same instant with increasing event ids
	h := NewEventHeap()
	for id := uint64(1); id <= 5; id++ {
		h.Schedule(&VMStartupEvent{BaseEvent: newBaseEvent(10.0, EventTypeVMStartup, id), VM: VMID(id)})
	}

	// THEN they pop in scheduling order
	for id := uint64(1); id <= 5; id++ {
		ev := h.PopNext()
		assert.Equal(t, id, ev.EventID())
	}
}

func TestEventHeap_PeekDoesNotRemove(t *testing.T) {
	h := NewEventHeap()
	assert.Nil(t, h.Peek())
	h.Schedule(&VMShutdownEvent{BaseEvent: newBaseEvent(1.0, EventTypeVMShutdown, 1), VM: 0})
	assert.Equal(t, 1, h.Len())
	assert.NotNil(t, h.Peek())
	assert.Equal(t, 1, h.Len())
}
