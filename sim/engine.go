package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Engine owns the virtual clock and the pending-event heap of one episode.
// It advances time in agent-sized timesteps, integrating cloudlet execution
// piecewise between events. The engine is single-threaded: a timestep runs
// to completion with no suspension points.
type Engine struct {
	clock       float64
	heap        *EventHeap
	nextEventID uint64

	minSpacing float64

	dc  *Datacenter
	bus *Bus

	// requeue receives cloudlets drained from a destroyed VM when the
	// requeue-on-destroy option is on; nil fails them instead.
	requeue func(*Cloudlet)

	stopped  bool
	fatalErr error
}

// NewEngine creates an engine at clock zero.
func NewEngine(dc *Datacenter, bus *Bus, minSpacing float64) *Engine {
	return &Engine{
		heap:       NewEventHeap(),
		minSpacing: minSpacing,
		dc:         dc,
		bus:        bus,
	}
}

// Now returns the current virtual time in seconds.
func (e *Engine) Now() float64 { return e.clock }

// Stop marks the engine as explicitly stopped.
func (e *Engine) Stop() { e.stopped = true }

// Stopped reports whether the engine was explicitly stopped or died on a
// fatal handler error.
func (e *Engine) Stopped() bool { return e.stopped }

// FatalErr returns the handler error that killed the episode, if any.
func (e *Engine) FatalErr() error { return e.fatalErr }

// PendingEvents returns the number of scheduled-but-unprocessed events.
func (e *Engine) PendingEvents() int { return e.heap.Len() }

// ScheduleAfter schedules an event `delay` seconds from now. Delays are
// coalesced up to the next multiple of the minimum event spacing, bounding
// how finely events can be packed.
func (e *Engine) ScheduleAfter(delay float64, build func(timestamp float64, eventID uint64) Event) {
	if delay < 0 {
		delay = 0
	}
	at := e.clock + delay
	if e.minSpacing > 0 {
		ticks := math.Ceil((at - timeEps) / e.minSpacing)
		at = ticks * e.minSpacing
		if at < e.clock {
			at = e.clock
		}
	}
	e.nextEventID++
	e.heap.Schedule(build(at, e.nextEventID))
}

// ScheduleVMStartup schedules the Pending → Running transition of a VM.
func (e *Engine) ScheduleVMStartup(vm VMID, delay float64) {
	e.ScheduleAfter(delay, func(ts float64, id uint64) Event {
		return &VMStartupEvent{BaseEvent: newBaseEvent(ts, EventTypeVMStartup, id), VM: vm}
	})
}

// ScheduleVMShutdown schedules the teardown of a VM.
func (e *Engine) ScheduleVMShutdown(vm VMID, delay float64) {
	e.ScheduleAfter(delay, func(ts float64, id uint64) Event {
		return &VMShutdownEvent{BaseEvent: newBaseEvent(ts, EventTypeVMShutdown, id), VM: vm}
	})
}

// RunOneTimestep advances the clock by exactly delta seconds, processing
// every pending event scheduled at or before clock+delta. Cloudlet
// execution is integrated piecewise between events so completions land on
// their exact instants. Returns the fatal error, if a handler failed.
func (e *Engine) RunOneTimestep(delta float64) error {
	if e.stopped {
		return e.fatalErr
	}
	target := e.clock + delta
	for {
		next := e.heap.Peek()
		if next == nil || next.Timestamp() > target+timeEps {
			break
		}
		e.heap.PopNext()
		if next.Timestamp() < e.clock-timeEps {
			e.fail(fmt.Errorf("%w: event %s scheduled at %.6f behind clock %.6f",
				ErrFatalSimulation, next.Type(), next.Timestamp(), e.clock))
			return e.fatalErr
		}
		if next.Timestamp() > e.clock {
			e.dc.AdvanceExecution(e.clock, next.Timestamp(), e.bus)
			e.clock = next.Timestamp()
		}
		if err := e.execute(next); err != nil {
			return err
		}
	}
	e.dc.AdvanceExecution(e.clock, target, e.bus)
	e.clock = target
	return nil
}

// execute runs one event handler, converting panics into a fatal episode
// error rather than crashing the process hosting the environment.
func (e *Engine) execute(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("%w: %s event at %.3fs: %v", ErrFatalSimulation, ev.Type(), ev.Timestamp(), r))
			err = e.fatalErr
		}
	}()
	logrus.Debugf("[%.3fs] executing %s event", e.clock, ev.Type())
	ev.Execute(e)
	return nil
}

func (e *Engine) fail(err error) {
	e.stopped = true
	e.fatalErr = err
	logrus.Errorf("simulation failed: %v", err)
}

func (e *Engine) handleVMStartup(ev *VMStartupEvent) {
	vm := e.dc.VM(ev.VM)
	if vm == nil || vm.State != VMPending {
		return
	}
	vm.State = VMRunning
	e.bus.Publish(VMStateChangedMsg{VM: vm.ID, From: VMPending, To: VMRunning, At: e.clock})
	logrus.Debugf("[%.3fs] VM %d is running", e.clock, vm.ID)
}

func (e *Engine) handleVMShutdown(ev *VMShutdownEvent) {
	vm := e.dc.VM(ev.VM)
	if vm == nil || vm.State == VMDestroyed {
		return
	}
	prev := vm.State
	for _, c := range vm.Scheduler.Drain() {
		if e.requeue != nil {
			c.VM = NoVM
			c.State = CloudletWaiting
			c.SubmissionTime = timeUnset
			c.StartTime = timeUnset
			c.RemainingMI = float64(c.LengthMI)
			e.requeue(c)
			continue
		}
		c.State = CloudletFailed
		c.FinishTime = e.clock
		e.bus.Publish(CloudletFailedMsg{Cloudlet: c.ID, VM: vm.ID, At: e.clock})
	}
	e.dc.ReleaseVM(vm)
	vm.State = VMDestroyed
	vm.DestroyedAt = e.clock
	e.bus.Publish(VMStateChangedMsg{VM: vm.ID, From: prev, To: VMDestroyed, At: e.clock})
	logrus.Debugf("[%.3fs] VM %d destroyed", e.clock, vm.ID)
}
