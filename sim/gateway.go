package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/greendc-sim/greendc-sim/sim/green"
	"github.com/greendc-sim/greendc-sim/sim/workload"
)

// Gateway is the single entry point consumed by the controller. It owns the
// episode state, the per-episode id counters, and composes observation and
// reward for each step. One Gateway hosts one episode at a time; parallel
// training uses one Gateway per worker.
type Gateway struct {
	cfg Config

	engine   *Engine
	dc       *Datacenter
	broker   *Broker
	energy   *EnergyAccountant
	bus      *Bus
	rng      *PartitionedRNG
	episode  *EpisodeState
	provider *green.Provider
	results  *ResultsWriter

	vMax     int
	nextVMID VMID

	completedCount int
	failedCount    int

	hasEpisode  bool
	episodeOver bool
	closed      bool
}

// NewGateway creates a gateway with the default configuration. Call
// Configure to override, then Reset to start the first episode.
func NewGateway() *Gateway {
	return &Gateway{cfg: DefaultConfig()}
}

// Config returns the active configuration.
func (g *Gateway) Config() Config { return g.cfg }

// Configure validates and stores a configuration record. Idempotent; no
// simulation work happens until Reset.
func (g *Gateway) Configure(cfg Config) error {
	if g.closed {
		return ErrClosed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}

// Reset tears down any prior simulation and constructs a fresh episode from
// the stored configuration, seeded for determinism. Returns the initial
// observation and an info record at clock zero.
func (g *Gateway) Reset(seed int64) (Observation, StepInfo, error) {
	if g.closed {
		return Observation{}, StepInfo{}, ErrClosed
	}
	if err := g.cfg.Validate(); err != nil {
		return Observation{}, StepInfo{}, err
	}
	g.teardown()

	g.rng = NewPartitionedRNG(seed)
	g.bus = NewBus()
	g.dc = NewDatacenter(DatacenterCharacteristics{
		CostPerSecond:  g.cfg.CostPerSecond,
		CostPerRAM:     g.cfg.CostPerRAM,
		CostPerBW:      g.cfg.CostPerBW,
		CostPerStorage: g.cfg.CostPerStorage,
	}, NewVmAllocationPolicy(g.cfg.VmAllocationPolicyName))
	buildHosts(&g.cfg, g.dc)

	g.engine = NewEngine(g.dc, g.bus, g.cfg.MinTimeBetweenEvents)

	if g.cfg.Green.Enabled {
		mode := g.cfg.Green.Interpolation
		if mode == "" {
			mode = InterpolationLinear
		}
		provider, err := green.Load(g.cfg.Green.WindDataFile, g.cfg.Green.TurbineID, g.cfg.Green.SamplePeriodSec, mode)
		if err != nil {
			return Observation{}, StepInfo{}, workloadErrorf("green power series: %v", err)
		}
		g.provider = provider
	} else {
		g.provider = nil
	}

	source, err := g.buildSource()
	if err != nil {
		return Observation{}, StepInfo{}, err
	}
	g.broker = NewBroker(source, g.dc, g.bus)
	g.subscribeCounters()

	if g.cfg.RequeueOnVmDestroy {
		g.engine.requeue = g.broker.Requeue
	}

	g.nextVMID = 0
	if err := g.createInitialFleet(); err != nil {
		return Observation{}, StepInfo{}, err
	}

	g.energy = NewEnergyAccountant(g.dc, g.provider, g.cfg.Green.CarbonFactorBrown, g.cfg.Green.CarbonFactorGreen)
	g.episode = NewEpisodeState()
	g.vMax = vmSlotBound(&g.cfg)
	g.completedCount = 0
	g.failedCount = 0
	g.hasEpisode = true
	g.episodeOver = false

	if g.cfg.ResultsFile != "" {
		w, err := NewResultsWriter(g.cfg.ResultsFile)
		if err != nil {
			return Observation{}, StepInfo{}, configErrorf("results file: %v", err)
		}
		g.results = w
	}

	// Items due at clock zero are queued before the first step so the
	// agent's first action can already target them.
	g.broker.PollArrivals(0)

	logrus.Infof("episode reset: seed=%d hosts=%d vms=%d workload=%d vmax=%d maxPower=%.0fW",
		seed, len(g.dc.Hosts()), len(g.dc.VMs()), g.broker.TotalCloudlets(), g.vMax, g.energy.MaxTotalPowerW)

	obs := BuildObservation(g.dc, g.broker, g.vMax, 0, 0)
	info := g.buildInfo(RewardComponents{}, StepInfo{})
	return obs, info, nil
}

// Step executes one environment step: action, arrival poll, time advance,
// energy update, observation, reward, termination, info — in that order.
func (g *Gateway) Step(action Action) (Observation, float64, bool, bool, StepInfo, error) {
	if g.closed {
		return Observation{}, 0, false, false, StepInfo{}, ErrClosed
	}
	if !g.hasEpisode {
		return Observation{}, 0, false, false, StepInfo{}, configErrorf("step before reset")
	}
	if g.episodeOver {
		return Observation{}, 0, false, false, StepInfo{}, fmt.Errorf("%w: episode is over, call reset", ErrFatalSimulation)
	}

	g.episode.CurrentStep++
	delta := g.cfg.SimulationTimestep

	// 1. Action execution.
	var actInfo StepInfo
	wasInvalid := g.applyAction(action, &actInfo)

	// 2. Arrival poll — strictly before time advance, so an arrival inside
	// the advanced interval becomes visible one step later.
	g.broker.PollArrivals(g.engine.Now())

	// 3. Time advance.
	fatal := g.engine.RunOneTimestep(delta)

	// 4. Energy update.
	g.energy.Update(g.engine.Now(), delta)

	// 5. Observation assembly.
	completedDelta := g.completedCount - g.episode.PrevFinishedCount
	g.episode.PrevFinishedCount = g.completedCount
	g.episode.RecordCompletions(completedDelta)
	obs := BuildObservation(g.dc, g.broker, g.vMax, g.episode.CompletedLast10Steps(), g.engine.Now())

	// 6. Reward computation.
	reward := ComputeReward(g.cfg.Reward, RewardInputs{
		FinishedWaitTimes: g.broker.DrainFinishedWaitTimes(),
		RunningVmUtils:    g.runningVmUtils(),
		WaitingCount:      g.broker.WaitingCount(),
		TotalArrived:      g.broker.TotalArrived(),
		WasInvalidAction:  wasInvalid,
		StepEnergyWh:      g.energy.LastStepWh,
		MaxTotalPowerW:    g.energy.MaxTotalPowerW,
		DeltaH:            delta / 3600.0,
	})
	g.episode.LastReward = reward

	// 7. Termination tests.
	terminated := false
	truncated := false
	if fatal != nil {
		terminated = true
		actInfo.Error = fatal.Error()
	} else {
		workDrained := g.broker.WorkloadExhausted() &&
			!g.broker.HasWaiting() &&
			g.dc.RunningCloudletCount() == 0 &&
			g.dc.LocalWaitingCloudletCount() == 0
		terminated = g.engine.Stopped() || workDrained
		truncated = !terminated && g.episode.CurrentStep >= g.cfg.MaxEpisodeLength
	}
	g.episodeOver = terminated || truncated

	// 8. Info bag.
	info := g.buildInfo(reward, actInfo)

	if g.results != nil {
		rec := StepRecord{
			Step:             g.episode.CurrentStep,
			Clock:            g.engine.Now(),
			Reward:           reward.Total(),
			RewardWaitTime:   reward.WaitTime,
			RewardUnutil:     reward.Unutilization,
			RewardQueue:      reward.QueuePenalty,
			RewardInvalid:    reward.InvalidAction,
			RewardEnergy:     reward.Energy,
			PowerW:           g.energy.LastPowerW,
			CumulativeWh:     g.energy.CumulativeWh,
			GreenWh:          g.energy.CumulativeGreenWh,
			BrownWh:          g.energy.CumulativeBrownWh,
			WastedGreenWh:    g.energy.TotalWastedWh,
			WaitingCloudlets: g.broker.WaitingCount(),
			Completed:        g.completedCount,
		}
		if err := g.results.Append(rec); err != nil {
			logrus.Warnf("results file append failed: %v", err)
		}
	}

	return obs, reward.Total(), terminated, truncated, info, nil
}

// Close tears the engine down. Further calls fail with ErrClosed.
func (g *Gateway) Close() {
	if g.closed {
		return
	}
	g.teardown()
	if g.engine != nil {
		g.engine.Stop()
	}
	g.closed = true
}

func (g *Gateway) teardown() {
	if g.results != nil {
		if err := g.results.Close(); err != nil {
			logrus.Warnf("closing results file: %v", err)
		}
		g.results = nil
	}
	g.hasEpisode = false
}

// applyAction interprets the action and mutates broker / VM pool state.
// Returns true when the action was invalid; validation always precedes
// mutation, so an invalid action leaves the simulation untouched.
func (g *Gateway) applyAction(action Action, info *StepInfo) bool {
	now := g.engine.Now()
	info.HostAffectedID = int(NoHost)

	switch action.Type {
	case ActionNoOp:
		return false

	case ActionAssign:
		if err := g.broker.AssignHeadToVM(action.TargetVM, now); err != nil {
			logrus.Debugf("[%.3fs] assignment rejected: %v", now, err)
			info.InvalidActionTaken = true
			return true
		}
		info.AssignmentSuccess = true
		if vm := g.dc.VM(action.TargetVM); vm != nil {
			info.HostAffectedID = int(vm.Host)
		}
		return false

	case ActionCreateVM:
		info.CreateVmAttempted = true
		vm, err := g.createVM(action.VMType, action.TargetHost)
		if err != nil {
			logrus.Debugf("[%.3fs] create VM rejected: %v", now, err)
			info.InvalidActionTaken = true
			return true
		}
		info.CreateVmSuccess = true
		info.HostAffectedID = int(vm.Host)
		info.CoresChanged = vm.PEs
		return false

	case ActionDestroyVM:
		info.DestroyVmAttempted = true
		vm := g.dc.VM(action.TargetVM)
		if vm == nil || vm.State == VMDestroyed || vm.State == VMFailed || vm.ShutdownRequested {
			logrus.Debugf("[%.3fs] destroy VM %d rejected", now, action.TargetVM)
			info.InvalidActionTaken = true
			return true
		}
		vm.ShutdownRequested = true
		g.engine.ScheduleVMShutdown(vm.ID, vm.ShutdownDelay)
		info.DestroyVmSuccess = true
		info.HostAffectedID = int(vm.Host)
		info.CoresChanged = -vm.PEs
		return false

	default:
		info.InvalidActionTaken = true
		return true
	}
}

// createVM builds a VM of the given type and places it: on the chosen host
// when one is named, else wherever the allocation policy decides. The VM is
// Pending until its submission delay elapses.
func (g *Gateway) createVM(t VMType, hostID HostID) (*VM, error) {
	if t < VMTypeSmall || t > VMTypeLarge {
		return nil, allocationFailedf("unknown VM type index %d", int(t))
	}
	pes, ram, bw, storage := g.cfg.vmSpec(t)
	vm := &VM{
		ID:              g.nextVMID,
		Type:            t,
		Host:            NoHost,
		PEs:             pes,
		RAMMB:           ram,
		BWMbps:          bw,
		StorageMB:       storage,
		SubmissionDelay: g.cfg.VmStartupDelay,
		ShutdownDelay:   g.cfg.VmShutdownDelay,
		CreatedAt:       g.engine.Now(),
		DestroyedAt:     timeUnset,
		State:           VMPending,
		Scheduler:       NewCloudletScheduler(g.schedulerKind(), pes),
	}
	var err error
	if hostID >= 0 {
		err = g.dc.PlaceVMOn(vm, hostID)
	} else {
		err = g.dc.PlaceVM(vm)
	}
	if err != nil {
		return nil, err
	}
	g.nextVMID++
	g.engine.ScheduleVMStartup(vm.ID, vm.SubmissionDelay)
	return vm, nil
}

// createInitialFleet places the configured S/M/L VMs. Initial VMs skip the
// submission delay: the fleet is running when the first observation is
// taken.
func (g *Gateway) createInitialFleet() error {
	counts := []struct {
		t VMType
		n int
	}{
		{VMTypeSmall, g.cfg.InitialSVmCount},
		{VMTypeMedium, g.cfg.InitialMVmCount},
		{VMTypeLarge, g.cfg.InitialLVmCount},
	}
	for _, c := range counts {
		for i := 0; i < c.n; i++ {
			pes, ram, bw, storage := g.cfg.vmSpec(c.t)
			vm := &VM{
				ID:            g.nextVMID,
				Type:          c.t,
				Host:          NoHost,
				PEs:           pes,
				RAMMB:         ram,
				BWMbps:        bw,
				StorageMB:     storage,
				ShutdownDelay: g.cfg.VmShutdownDelay,
				DestroyedAt:   timeUnset,
				State:         VMRunning,
				Scheduler:     NewCloudletScheduler(g.schedulerKind(), pes),
			}
			if err := g.dc.PlaceVM(vm); err != nil {
				return configErrorf("initial fleet does not fit: %v", err)
			}
			g.nextVMID++
		}
	}
	return nil
}

func (g *Gateway) schedulerKind() SchedulerKind {
	if g.cfg.CloudletSchedulerPolicy == SchedulerTimeShared {
		return SchedTimeShared
	}
	return SchedSpaceShared
}

func (g *Gateway) buildSource() (*workload.Source, error) {
	if g.cfg.WorkloadMode == WorkloadModeSynthetic {
		return workload.Generate(g.rng.ForSubsystem(SubsystemWorkload), workload.SyntheticOptions{
			Rate:         g.cfg.SyntheticRate,
			MaxCloudlets: g.cfg.MaxCloudletsToCreate,
			LengthMeanMI: g.cfg.SyntheticLengthMeanMI,
			LengthStdMI:  g.cfg.SyntheticLengthStdMI,
			LengthMinMI:  g.cfg.SyntheticLengthMinMI,
			LengthMaxMI:  g.cfg.SyntheticLengthMaxMI,
			MaxPEs:       g.cfg.MaxCloudletPEs,
		}), nil
	}
	if g.cfg.CloudletTraceFile == "" {
		return workload.NewSource(nil), nil
	}
	switch g.cfg.WorkloadMode {
	case WorkloadModeSWF:
		source, err := workload.LoadSWF(g.cfg.CloudletTraceFile, workload.SWFOptions{
			MaxItems:       g.cfg.MaxCloudletsToCreate,
			ReaderMips:     g.cfg.WorkloadReaderMips,
			MaxCloudletPEs: g.cfg.MaxCloudletPEs,
			SplitLarge:     g.cfg.SplitLargeCloudlets,
		})
		if err != nil {
			return nil, workloadErrorf("%v", err)
		}
		return source, nil
	default:
		source, err := workload.LoadCSV(g.cfg.CloudletTraceFile, g.cfg.MaxCloudletsToCreate)
		if err != nil {
			return nil, workloadErrorf("%v", err)
		}
		return source, nil
	}
}

func (g *Gateway) subscribeCounters() {
	g.bus.Subscribe(func(msg Message) {
		switch msg.(type) {
		case CloudletFinishedMsg:
			g.completedCount++
		case CloudletFailedMsg:
			g.failedCount++
		}
	})
}

func (g *Gateway) runningVmUtils() []float64 {
	var utils []float64
	for _, vm := range g.dc.VMs() {
		if vm.State == VMRunning {
			utils = append(utils, vm.CPUPercent())
		}
	}
	return utils
}

// buildInfo packages the step scalars, merging the action-outcome flags
// collected during action execution.
func (g *Gateway) buildInfo(reward RewardComponents, actInfo StepInfo) StepInfo {
	info := actInfo
	info.CurrentClock = g.engine.Now()

	info.RewardWaitTime = reward.WaitTime
	info.RewardUnutilization = reward.Unutilization
	info.RewardQueuePenalty = reward.QueuePenalty
	info.RewardInvalidAction = reward.InvalidAction
	info.RewardEnergy = reward.Energy

	info.CurrentPowerW = g.energy.LastPowerW
	info.CumulativeEnergyWh = g.energy.CumulativeWh
	info.AverageHostUtilization = g.dc.AverageHostUtilization()

	info.CumulativeGreenEnergyWh = g.energy.CumulativeGreenWh
	info.CumulativeBrownEnergyWh = g.energy.CumulativeBrownWh
	info.TotalWastedGreenWh = g.energy.TotalWastedWh
	info.CurrentGreenPowerW = g.energy.LastGreenPowerW
	info.GreenRatio = g.energy.GreenRatio()
	info.CarbonEmissionsKg = g.energy.CarbonKg()

	if g.provider != nil {
		short := g.provider.ShortForecast(g.engine.Now())
		long := g.provider.LongForecast(g.engine.Now())
		info.GreenShortForecastMeanW = short.MeanW
		info.GreenShortForecastTrend = short.TrendWPerSec
		info.GreenLongForecastMeanW = long.MeanW
		info.GreenLongForecastTrend = long.TrendWPerSec
		info.GreenTimeToPeak = g.provider.TimeToPeakNorm(g.engine.Now())
	}

	info.EpisodeCost = g.dc.ComputeCosts(g.engine.Now()).Total()
	info.EpisodeDuration = g.engine.Now()
	info.EpisodeCompletedCloudlets = g.completedCount
	info.EpisodeTotalCloudlets = g.broker.TotalCloudlets()
	if total := g.broker.TotalCloudlets(); total > 0 {
		info.EpisodeCompletionRate = float64(g.completedCount) / float64(total)
	}
	return info
}
