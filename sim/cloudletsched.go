package sim

// SchedulerKind tags the cloudlet scheduler variant of a VM.
type SchedulerKind int

const (
	// SchedSpaceShared dedicates whole PEs to a cloudlet for its entire
	// run; cloudlets that do not fit wait in a local FIFO queue.
	SchedSpaceShared SchedulerKind = iota
	// SchedTimeShared runs every admitted cloudlet concurrently, scaling
	// per-cloudlet MIPS down proportionally when demand exceeds capacity.
	SchedTimeShared
)

// miEps is the slack under which remaining work counts as done; guards the
// accumulation error of piecewise advances.
const miEps = 1e-6

// timeEps bounds floating-point comparisons on the virtual clock.
const timeEps = 1e-9

// CloudletScheduler executes the cloudlets dispatched to one VM. It owns
// their scheduling state exclusively: running set, local waiting queue, and
// PE bookkeeping. Dispatch branches on the variant tag in the advance loop.
type CloudletScheduler struct {
	Kind   SchedulerKind
	vmPEs  int
	peMips int

	running []*Cloudlet
	waiting []*Cloudlet
	usedPEs int
}

// NewCloudletScheduler creates a scheduler for a VM with the given capacity.
// The per-PE speed is bound at placement time via bindHost.
func NewCloudletScheduler(kind SchedulerKind, vmPEs int) *CloudletScheduler {
	return &CloudletScheduler{Kind: kind, vmPEs: vmPEs}
}

// bindHost fixes the per-PE speed the VM inherits from its host.
func (s *CloudletScheduler) bindHost(peMips int) {
	s.peMips = peMips
}

// UsedPEs returns PEs currently allocated to running cloudlets.
func (s *CloudletScheduler) UsedPEs() int { return s.usedPEs }

// Running returns the running cloudlets in admission order.
func (s *CloudletScheduler) Running() []*Cloudlet { return s.running }

// Waiting returns the locally queued cloudlets in FIFO order.
func (s *CloudletScheduler) Waiting() []*Cloudlet { return s.waiting }

// CPUPercent returns Σ(allocated pes) / vm pes, clamped to [0,1].
func (s *CloudletScheduler) CPUPercent() float64 {
	if s.vmPEs == 0 {
		return 0
	}
	u := float64(s.usedPEs) / float64(s.vmPEs)
	if u > 1 {
		u = 1
	}
	return u
}

// Submit admits a cloudlet for execution or buffers it locally. Returns
// true when the cloudlet starts immediately.
func (s *CloudletScheduler) Submit(c *Cloudlet, now float64) bool {
	switch s.Kind {
	case SchedTimeShared:
		s.start(c, now)
		return true
	default: // space-shared
		if s.vmPEs-s.usedPEs >= c.PEs {
			s.start(c, now)
			return true
		}
		c.State = CloudletWaiting
		s.waiting = append(s.waiting, c)
		return false
	}
}

func (s *CloudletScheduler) start(c *Cloudlet, now float64) {
	c.State = CloudletRunning
	c.StartTime = now
	s.usedPEs += c.PEs
	s.running = append(s.running, c)
}

// rateMIPerSec returns the execution rate of a running cloudlet given the
// current running set.
func (s *CloudletScheduler) rateMIPerSec(c *Cloudlet) float64 {
	base := float64(s.peMips) * float64(c.PEs)
	if s.Kind == SchedTimeShared && s.usedPEs > s.vmPEs {
		return base * float64(s.vmPEs) / float64(s.usedPEs)
	}
	return base
}

// AdvanceTo integrates execution from virtual time `from` to `to`,
// finishing cloudlets at their exact completion instants and promoting
// locally queued work in FIFO order as PEs free up. onFinish is invoked
// once per completion, in completion order.
func (s *CloudletScheduler) AdvanceTo(from, to float64, onFinish func(c *Cloudlet, at float64)) {
	t := from
	for t < to-timeEps && len(s.running) > 0 {
		// Earliest completion within the running set at current rates.
		dtMin := to - t
		for _, c := range s.running {
			if ttf := c.RemainingMI / s.rateMIPerSec(c); ttf < dtMin {
				dtMin = ttf
			}
		}
		if dtMin < 0 {
			dtMin = 0
		}

		for _, c := range s.running {
			c.RemainingMI -= s.rateMIPerSec(c) * dtMin
		}
		t += dtMin

		still := s.running[:0]
		var finished []*Cloudlet
		for _, c := range s.running {
			if c.RemainingMI <= miEps {
				finished = append(finished, c)
			} else {
				still = append(still, c)
			}
		}
		s.running = still
		if len(finished) == 0 {
			// No completion inside the interval; we advanced to `to`.
			break
		}
		for _, c := range finished {
			s.usedPEs -= c.PEs
			c.RemainingMI = 0
			c.State = CloudletFinished
			c.FinishTime = t
			onFinish(c, t)
		}
		s.promote(t)
	}
}

// promote starts locally queued cloudlets that now fit, FIFO.
func (s *CloudletScheduler) promote(now float64) {
	if s.Kind == SchedTimeShared {
		return
	}
	keep := s.waiting[:0]
	for _, c := range s.waiting {
		if s.vmPEs-s.usedPEs >= c.PEs {
			s.start(c, now)
		} else {
			keep = append(keep, c)
		}
	}
	s.waiting = keep
}

// Drain removes and returns every cloudlet held by the scheduler, running
// first, then locally waiting, resetting the PE bookkeeping. Used when the
// owning VM shuts down.
func (s *CloudletScheduler) Drain() []*Cloudlet {
	out := make([]*Cloudlet, 0, len(s.running)+len(s.waiting))
	out = append(out, s.running...)
	out = append(out, s.waiting...)
	s.running = nil
	s.waiting = nil
	s.usedPEs = 0
	return out
}
