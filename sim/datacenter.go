package sim

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// DatacenterCharacteristics is the cost tuple of a datacenter.
type DatacenterCharacteristics struct {
	CostPerSecond  float64
	CostPerRAM     float64
	CostPerBW      float64
	CostPerStorage float64
}

// Datacenter owns the hosts and the VM/cloudlet arenas of one episode.
// Entities are referenced by id everywhere; the arena is the single owner
// of the backing structs.
type Datacenter struct {
	Characteristics DatacenterCharacteristics

	hosts []*Host

	vms     map[VMID]*VM
	vmOrder []VMID

	cloudlets     map[CloudletID]*Cloudlet
	cloudletOrder []CloudletID

	allocation VmAllocationPolicy
}

// NewDatacenter creates an empty datacenter with the given placement policy.
func NewDatacenter(chars DatacenterCharacteristics, policy VmAllocationPolicy) *Datacenter {
	return &Datacenter{
		Characteristics: chars,
		vms:             make(map[VMID]*VM),
		cloudlets:       make(map[CloudletID]*Cloudlet),
		allocation:      policy,
	}
}

// AddHost appends a host to the arena. Host ids are assigned densely in
// creation order.
func (dc *Datacenter) AddHost(h *Host) {
	h.ID = HostID(len(dc.hosts))
	dc.hosts = append(dc.hosts, h)
}

// Hosts returns the host arena in id order.
func (dc *Datacenter) Hosts() []*Host { return dc.hosts }

// Host returns the host with the given id, or nil.
func (dc *Datacenter) Host(id HostID) *Host {
	if id < 0 || int(id) >= len(dc.hosts) {
		return nil
	}
	return dc.hosts[id]
}

// VM returns the VM with the given id, or nil.
func (dc *Datacenter) VM(id VMID) *VM { return dc.vms[id] }

// VMs returns the VMs in creation order.
func (dc *Datacenter) VMs() []*VM {
	out := make([]*VM, 0, len(dc.vmOrder))
	for _, id := range dc.vmOrder {
		out = append(out, dc.vms[id])
	}
	return out
}

// Cloudlet returns the cloudlet with the given id, or nil.
func (dc *Datacenter) Cloudlet(id CloudletID) *Cloudlet { return dc.cloudlets[id] }

// Cloudlets returns the cloudlets in registration order.
func (dc *Datacenter) Cloudlets() []*Cloudlet {
	out := make([]*Cloudlet, 0, len(dc.cloudletOrder))
	for _, id := range dc.cloudletOrder {
		out = append(out, dc.cloudlets[id])
	}
	return out
}

// RegisterCloudlet adds a cloudlet to the arena. Duplicate ids are a
// programming error upstream (sources reject them at load).
func (dc *Datacenter) RegisterCloudlet(c *Cloudlet) {
	dc.cloudlets[c.ID] = c
	dc.cloudletOrder = append(dc.cloudletOrder, c.ID)
}

// PlaceVM registers the VM and places it via the allocation policy.
// Returns ErrAllocationFailed when no host fits.
func (dc *Datacenter) PlaceVM(vm *VM) error {
	host := dc.allocation.FindHost(vm, dc.hosts)
	if host == nil {
		return allocationFailedf("no host fits VM %d (%s: %d pes, %d MB ram)", vm.ID, vm.Type, vm.PEs, vm.RAMMB)
	}
	dc.bindVM(vm, host)
	return nil
}

// PlaceVMOn places the VM on a caller-chosen host.
func (dc *Datacenter) PlaceVMOn(vm *VM, hostID HostID) error {
	host := dc.Host(hostID)
	if host == nil {
		return allocationFailedf("host %d does not exist", hostID)
	}
	if !host.CanFit(vm) {
		return allocationFailedf("host %d cannot fit VM %d (%s)", hostID, vm.ID, vm.Type)
	}
	dc.bindVM(vm, host)
	return nil
}

func (dc *Datacenter) bindVM(vm *VM, host *Host) {
	host.attachVM(vm)
	vm.Host = host.ID
	vm.PEMips = host.PEMips
	vm.Scheduler.bindHost(host.PEMips)
	dc.vms[vm.ID] = vm
	dc.vmOrder = append(dc.vmOrder, vm.ID)
	logrus.Debugf("placed VM %d (%s) on host %d", vm.ID, vm.Type, host.ID)
}

// ReleaseVM detaches the VM from its host, returning its reservations. The
// VM stays in the arena with its terminal state for observation purposes.
func (dc *Datacenter) ReleaseVM(vm *VM) {
	if host := dc.Host(vm.Host); host != nil {
		host.detachVM(vm)
	}
}

// DispatchCloudlet hands a cloudlet to a VM's scheduler. The cloudlet
// starts immediately when the VM has enough free PEs, otherwise it queues
// locally at the VM.
func (dc *Datacenter) DispatchCloudlet(c *Cloudlet, vm *VM, now float64) (started bool) {
	c.VM = vm.ID
	c.SubmissionTime = now
	return vm.Scheduler.Submit(c, now)
}

// AdvanceExecution integrates all running VMs from virtual time `from` to
// `to`, publishing a CloudletFinishedMsg at each exact completion instant.
// VMs advance in creation order; within a VM, completions are chronological,
// so bus delivery order is deterministic.
func (dc *Datacenter) AdvanceExecution(from, to float64, bus *Bus) {
	if to <= from+timeEps {
		return
	}
	for _, id := range dc.vmOrder {
		vm := dc.vms[id]
		if vm.State != VMRunning {
			continue
		}
		vm.Scheduler.AdvanceTo(from, to, func(c *Cloudlet, at float64) {
			logrus.Debugf("cloudlet %d finished on VM %d at %.3fs", c.ID, vm.ID, at)
			bus.Publish(CloudletFinishedMsg{Cloudlet: c.ID, VM: vm.ID, At: at})
		})
	}
	for _, h := range dc.hosts {
		h.recordState(to, dc.HostUtilization(h))
	}
}

// HostUtilization returns the host's CPU utilization in [0,1]: PEs busy on
// resident running VMs over host PEs. Inactive hosts report 0.
func (dc *Datacenter) HostUtilization(h *Host) float64 {
	if !h.Active || h.PEs == 0 {
		return 0
	}
	busy := 0
	for _, vmID := range h.VMs() {
		vm := dc.vms[vmID]
		if vm == nil || vm.State != VMRunning {
			continue
		}
		used := vm.Scheduler.UsedPEs()
		if used > vm.PEs {
			used = vm.PEs
		}
		busy += used
	}
	u := float64(busy) / float64(h.PEs)
	if u > 1 {
		u = 1
	}
	return u
}

// AverageHostUtilization returns the mean utilization across all hosts.
func (dc *Datacenter) AverageHostUtilization() float64 {
	if len(dc.hosts) == 0 {
		return 0
	}
	sum := 0.0
	for _, h := range dc.hosts {
		sum += dc.HostUtilization(h)
	}
	return sum / float64(len(dc.hosts))
}

// TotalPowerW returns the instantaneous datacenter power draw: the sum of
// every host's power model evaluated at its current utilization.
func (dc *Datacenter) TotalPowerW() float64 {
	total := 0.0
	for _, h := range dc.hosts {
		total += h.Power.PowerW(dc.HostUtilization(h))
	}
	return total
}

// MaxTotalPowerW returns the draw with every host at full utilization.
// Computed once per episode as the energy-reward normalization denominator.
func (dc *Datacenter) MaxTotalPowerW() float64 {
	total := 0.0
	for _, h := range dc.hosts {
		total += h.Power.PowerW(1.0)
	}
	return total
}

// RunningCloudletCount returns cloudlets currently executing on any VM.
func (dc *Datacenter) RunningCloudletCount() int {
	n := 0
	for _, id := range dc.vmOrder {
		n += len(dc.vms[id].Scheduler.Running())
	}
	return n
}

// LocalWaitingCloudletCount returns cloudlets queued locally at VMs.
func (dc *Datacenter) LocalWaitingCloudletCount() int {
	n := 0
	for _, id := range dc.vmOrder {
		n += len(dc.vms[id].Scheduler.Waiting())
	}
	return n
}

// CloudletStateCounts returns the number of cloudlets per state.
func (dc *Datacenter) CloudletStateCounts() map[CloudletState]int {
	counts := make(map[CloudletState]int)
	for _, id := range dc.cloudletOrder {
		counts[dc.cloudlets[id].State]++
	}
	return counts
}

// buildHosts materializes the host arena from configuration. Heterogeneous
// profiles are instantiated in lexicographic profile-name order so host ids
// are stable across runs with identical config.
func buildHosts(cfg *Config, dc *Datacenter) {
	if cfg.EnableHeterogeneousHosts {
		names := make([]string, 0, len(cfg.HostProfileCounts))
		for name := range cfg.HostProfileCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			profile := cfg.HostProfiles[name]
			for i := 0; i < cfg.HostProfileCounts[name]; i++ {
				dc.AddHost(&Host{
					PEs:                 profile.PEs,
					PEMips:              profile.PEMips,
					RAMMB:               profile.RAMMB,
					BWMbps:              profile.BWMbps,
					StorageMB:           profile.StorageMB,
					Power:               NewLinearPowerModel(profile.MaxPowerW, profile.StaticPowerPercent),
					Active:              true,
					StateHistoryEnabled: cfg.HostStateHistory,
				})
			}
		}
		return
	}
	for i := 0; i < cfg.HostsCount; i++ {
		dc.AddHost(&Host{
			PEs:                 cfg.HostPEs,
			PEMips:              cfg.HostPEMips,
			RAMMB:               cfg.HostRAMMB,
			BWMbps:              cfg.HostBWMbps,
			StorageMB:           cfg.HostStorageMB,
			Power:               NewLinearPowerModel(cfg.HostMaxPowerW, cfg.HostStaticPercent),
			Active:              true,
			StateHistoryEnabled: cfg.HostStateHistory,
		})
	}
}
