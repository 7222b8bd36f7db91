package sim

// EventType identifies the kind of a scheduled event.
type EventType int

const (
	EventTypeVMStartup EventType = iota
	EventTypeVMShutdown
)

func (t EventType) String() string {
	switch t {
	case EventTypeVMStartup:
		return "VMStartup"
	case EventTypeVMShutdown:
		return "VMShutdown"
	default:
		return "Unknown"
	}
}

// Event is a scheduled simulation event. Events with equal timestamps are
// processed in scheduling order: the engine stamps each event with a
// monotonic id at schedule time and the heap breaks timestamp ties on it.
type Event interface {
	Timestamp() float64
	EventID() uint64
	Type() EventType
	Execute(e *Engine)
}

// BaseEvent provides the common event fields.
type BaseEvent struct {
	timestamp float64
	eventID   uint64
	eventType EventType
}

func newBaseEvent(timestamp float64, eventType EventType, eventID uint64) BaseEvent {
	return BaseEvent{timestamp: timestamp, eventID: eventID, eventType: eventType}
}

func (e *BaseEvent) Timestamp() float64 { return e.timestamp }
func (e *BaseEvent) EventID() uint64    { return e.eventID }
func (e *BaseEvent) Type() EventType    { return e.eventType }

// VMStartupEvent marks the end of a VM's submission delay: the VM
// transitions Pending → Running and becomes eligible for assignments.
type VMStartupEvent struct {
	BaseEvent
	VM VMID
}

func (e *VMStartupEvent) Execute(eng *Engine) {
	eng.handleVMStartup(e)
}

// VMShutdownEvent marks the end of a VM's shutdown delay: the VM releases
// its host resources and transitions to Destroyed. Resident cloudlets fail,
// or are requeued to the broker when requeue-on-destroy is enabled.
type VMShutdownEvent struct {
	BaseEvent
	VM VMID
}

func (e *VMShutdownEvent) Execute(eng *Engine) {
	eng.handleVMShutdown(e)
}
