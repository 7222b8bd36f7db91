package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/greendc-sim/greendc-sim/sim/workload"
)

// Broker owns the global waiting queue and the arrived-cloudlet set. It
// moves due items out of the workload source, executes the agent's
// assignment action, and keeps the arrival times needed for wait-time
// accounting. The broker reads host/VM state but never mutates it; resource
// mutation stays inside the allocation policy and the schedulers.
type Broker struct {
	source *workload.Source
	dc     *Datacenter

	queue       *WaitingQueue
	arrivalTime map[CloudletID]float64

	totalArrived int

	// finishedWaitTimes captures the wait time of each cloudlet that
	// finished since the last drain; cleared on every step read.
	finishedWaitTimes []float64
}

// NewBroker creates a broker over the given source and datacenter, and
// subscribes it to completion notifications for wait-time accounting.
func NewBroker(source *workload.Source, dc *Datacenter, bus *Bus) *Broker {
	b := &Broker{
		source:      source,
		dc:          dc,
		queue:       &WaitingQueue{},
		arrivalTime: make(map[CloudletID]float64),
	}
	bus.Subscribe(func(msg Message) {
		if m, ok := msg.(CloudletFinishedMsg); ok {
			b.onCloudletFinished(m)
		}
	})
	return b
}

// PollArrivals moves every workload item with arrival_time ≤ now into the
// waiting queue, registering the cloudlets in the datacenter arena.
func (b *Broker) PollArrivals(now float64) int {
	moved := 0
	for {
		item, ok := b.source.Peek()
		if !ok || item.ArrivalTime > now+timeEps {
			break
		}
		b.source.Next()
		c := NewCloudlet(CloudletID(item.ID), item.ArrivalTime, item.LengthMI, item.PEs, item.FileSizeKB, item.OutputSizeKB)
		c.State = CloudletWaiting
		b.dc.RegisterCloudlet(c)
		b.queue.Enqueue(c)
		b.arrivalTime[c.ID] = item.ArrivalTime
		b.totalArrived++
		moved++
	}
	if moved > 0 {
		logrus.Debugf("[%.3fs] %d cloudlets arrived, queue depth %d", now, moved, b.queue.Len())
	}
	return moved
}

// PeekWaiting returns the head cloudlet without removing it, or nil.
func (b *Broker) PeekWaiting() *Cloudlet { return b.queue.Peek() }

// HasWaiting reports whether any cloudlet is queued.
func (b *Broker) HasWaiting() bool { return b.queue.Len() > 0 }

// WaitingCount returns the queue depth.
func (b *Broker) WaitingCount() int { return b.queue.Len() }

// WaitingCloudlets returns the queued cloudlets front-first, read-only.
func (b *Broker) WaitingCloudlets() []*Cloudlet { return b.queue.Items() }

// TotalArrived returns how many cloudlets have entered the queue so far.
func (b *Broker) TotalArrived() int { return b.totalArrived }

// WorkloadExhausted reports whether the source has no items left.
func (b *Broker) WorkloadExhausted() bool { return b.source.Exhausted() }

// TotalCloudlets returns the size of the workload stream.
func (b *Broker) TotalCloudlets() int { return b.source.Total() }

// AssignHeadToVM validates and executes an assignment of the waiting-queue
// head to the VM with the given id. Validation happens before any mutation,
// so a rejected assignment leaves broker and VM pool state untouched.
func (b *Broker) AssignHeadToVM(vmID VMID, now float64) error {
	head := b.queue.Peek()
	if head == nil {
		return invalidAssignmentf("waiting queue is empty")
	}
	vm := b.dc.VM(vmID)
	if vm == nil {
		return invalidAssignmentf("VM %d does not exist", vmID)
	}
	if !vm.AcceptsCloudlets() {
		return invalidAssignmentf("VM %d is %s, not accepting cloudlets", vmID, vm.State)
	}
	if vm.PEs < head.PEs {
		return invalidAssignmentf("cloudlet %d needs %d pes, VM %d has %d", head.ID, head.PEs, vmID, vm.PEs)
	}

	b.queue.Dequeue()
	started := b.dc.DispatchCloudlet(head, vm, now)
	if started {
		logrus.Debugf("[%.3fs] cloudlet %d started on VM %d", now, head.ID, vmID)
	} else {
		logrus.Debugf("[%.3fs] cloudlet %d queued locally at VM %d", now, head.ID, vmID)
	}
	return nil
}

// Requeue returns a cloudlet to the queue tail, e.g. after its VM was
// destroyed mid-run with requeue-on-destroy enabled.
func (b *Broker) Requeue(c *Cloudlet) {
	b.queue.Enqueue(c)
}

// DrainFinishedWaitTimes returns and clears the wait times of cloudlets
// that finished since the previous drain.
func (b *Broker) DrainFinishedWaitTimes() []float64 {
	out := b.finishedWaitTimes
	b.finishedWaitTimes = nil
	return out
}

func (b *Broker) onCloudletFinished(m CloudletFinishedMsg) {
	c := b.dc.Cloudlet(m.Cloudlet)
	if c == nil {
		return
	}
	b.finishedWaitTimes = append(b.finishedWaitTimes, c.WaitTime())
}
