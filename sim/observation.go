package sim

import (
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Observation is the fixed-shape state snapshot returned to the controller
// each step. Array lengths depend only on the host count and the VM slot
// bound computed at reset, never on the live VM count, so the controller's
// tensor shapes stay stable across an episode.
type Observation struct {
	HostLoads         []float64 `json:"hostLoads"`
	HostRamUsageRatio []float64 `json:"hostRamUsageRatio"`

	VmLoads        []float64 `json:"vmLoads"`
	VmTypes        []int     `json:"vmTypes"`
	VmHostMap      []int     `json:"vmHostMap"`
	VmAvailablePes []int     `json:"vmAvailablePes"`

	WaitingCloudlets     int     `json:"waitingCloudlets"`
	NextCloudletPes      int     `json:"nextCloudletPes"`
	NextCloudletMi       int64   `json:"nextCloudletMi"`
	NextCloudletWaitTime float64 `json:"nextCloudletWaitTime"`

	QueuePesDistribution []int `json:"queuePesDistribution"`

	CompletedCloudletsLast10Steps int `json:"completedCloudletsLast10Steps"`

	InfrastructureTree []int `json:"infrastructureTree"`

	ActualVmCount   int `json:"actualVmCount"`
	ActualHostCount int `json:"actualHostCount"`
}

// vmSlotBound computes V_max: the max of the configured bound, the initial
// fleet size with 10% headroom, and a floor of 10 slots.
func vmSlotBound(cfg *Config) int {
	initial := cfg.InitialSVmCount + cfg.InitialMVmCount + cfg.InitialLVmCount
	bound := initial + (initial+9)/10
	if cfg.MaxVms > bound {
		bound = cfg.MaxVms
	}
	if bound < 10 {
		bound = 10
	}
	return bound
}

// BuildObservation assembles the observation from current simulation state.
// now is the virtual clock used for queue-head wait time.
func BuildObservation(dc *Datacenter, broker *Broker, vMax int, completedLast10 int, now float64) Observation {
	hosts := dc.Hosts()
	obs := Observation{
		HostLoads:            make([]float64, len(hosts)),
		HostRamUsageRatio:    make([]float64, len(hosts)),
		VmLoads:              make([]float64, vMax),
		VmTypes:              make([]int, vMax),
		VmHostMap:            make([]int, vMax),
		VmAvailablePes:       make([]int, vMax),
		QueuePesDistribution: make([]int, 3),

		CompletedCloudletsLast10Steps: completedLast10,
		ActualHostCount:               len(hosts),
	}

	for i, h := range hosts {
		obs.HostLoads[i] = dc.HostUtilization(h)
		obs.HostRamUsageRatio[i] = h.RAMUsageRatio()
	}

	for slot := range obs.VmHostMap {
		obs.VmHostMap[slot] = -1
	}
	for _, vm := range dc.VMs() {
		if vm.State == VMDestroyed || vm.State == VMFailed {
			continue
		}
		obs.ActualVmCount++
		slot := int(vm.ID)
		if slot >= vMax {
			// Executed by the scheduler but invisible to the agent.
			logrus.Warnf("VM %d exceeds observation slot bound %d, omitted", vm.ID, vMax)
			continue
		}
		obs.VmTypes[slot] = int(vm.Type)
		obs.VmHostMap[slot] = int(vm.Host)
		if vm.State == VMRunning {
			obs.VmLoads[slot] = vm.CPUPercent()
			obs.VmAvailablePes[slot] = vm.FreePEs()
		}
	}

	obs.WaitingCloudlets = broker.WaitingCount()
	if head := broker.PeekWaiting(); head != nil {
		obs.NextCloudletPes = head.PEs
		obs.NextCloudletMi = head.LengthMI
		obs.NextCloudletWaitTime = now - head.ArrivalTime
	}
	for _, c := range broker.WaitingCloudlets() {
		switch {
		case c.PEs <= 2:
			obs.QueuePesDistribution[0]++
		case c.PEs <= 4:
			obs.QueuePesDistribution[1]++
		default:
			obs.QueuePesDistribution[2]++
		}
	}

	obs.InfrastructureTree = buildInfrastructureTree(dc)
	return obs
}

// buildInfrastructureTree flattens the placement into
// [total_pes, H, (host_pes, vm_count, (vm_pes, cloudlet_count, (cloudlet_pes, 0)*)*)*].
// Rendering/diagnostics only; agents should prefer the flat arrays.
func buildInfrastructureTree(dc *Datacenter) []int {
	hosts := dc.Hosts()
	tree := []int{
		lo.SumBy(hosts, func(h *Host) int { return h.PEs }),
		len(hosts),
	}
	for _, h := range hosts {
		vmIDs := lo.Filter(h.VMs(), func(id VMID, _ int) bool {
			vm := dc.VM(id)
			return vm != nil && vm.State != VMDestroyed && vm.State != VMFailed
		})
		tree = append(tree, h.PEs, len(vmIDs))
		for _, id := range vmIDs {
			vm := dc.VM(id)
			cloudlets := append([]*Cloudlet{}, vm.Scheduler.Running()...)
			cloudlets = append(cloudlets, vm.Scheduler.Waiting()...)
			tree = append(tree, vm.PEs, len(cloudlets))
			for _, c := range cloudlets {
				tree = append(tree, c.PEs, 0)
			}
		}
	}
	return tree
}
