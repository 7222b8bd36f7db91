package sim

// HostID identifies a physical host within an episode.
type HostID int

// HostStateEntry is a sampled utilization record kept when state history is
// enabled on a host.
type HostStateEntry struct {
	Time        float64
	Utilization float64
	PowerW      float64
}

// Host is a physical server. It exclusively owns its resident VMs'
// reservations: resource counters are mutated only through attachVM and
// detachVM, so the capacity invariant Σ(vm resources) ≤ host capacity holds
// between any two engine operations.
type Host struct {
	ID        HostID
	PEs       int
	PEMips    int
	RAMMB     int64
	BWMbps    int64
	StorageMB int64
	Power     PowerModel
	Active    bool

	StateHistoryEnabled bool
	StateHistory        []HostStateEntry

	// Resident VM ids in attach order.
	vms []VMID

	usedPEs     int
	usedRAMMB   int64
	usedBWMbps  int64
	usedStorage int64
}

// FreePEs returns the number of unreserved processing elements.
func (h *Host) FreePEs() int { return h.PEs - h.usedPEs }

// FreeRAMMB returns the unreserved RAM.
func (h *Host) FreeRAMMB() int64 { return h.RAMMB - h.usedRAMMB }

// FreeBWMbps returns the unreserved bandwidth.
func (h *Host) FreeBWMbps() int64 { return h.BWMbps - h.usedBWMbps }

// FreeStorageMB returns the unreserved storage.
func (h *Host) FreeStorageMB() int64 { return h.StorageMB - h.usedStorage }

// VMs returns the resident VM ids in attach order.
func (h *Host) VMs() []VMID { return h.vms }

// CanFit reports whether the VM's full resource demand fits on this host.
func (h *Host) CanFit(vm *VM) bool {
	return vm.PEs <= h.FreePEs() &&
		vm.RAMMB <= h.FreeRAMMB() &&
		vm.BWMbps <= h.FreeBWMbps() &&
		vm.StorageMB <= h.FreeStorageMB()
}

// attachVM reserves the VM's resources on this host. Callers must check
// CanFit first; attaching an oversized VM panics because it would corrupt
// the capacity invariant.
func (h *Host) attachVM(vm *VM) {
	if !h.CanFit(vm) {
		panic("attachVM: VM does not fit on host")
	}
	h.usedPEs += vm.PEs
	h.usedRAMMB += vm.RAMMB
	h.usedBWMbps += vm.BWMbps
	h.usedStorage += vm.StorageMB
	h.vms = append(h.vms, vm.ID)
}

// detachVM releases the VM's reservations.
func (h *Host) detachVM(vm *VM) {
	h.usedPEs -= vm.PEs
	h.usedRAMMB -= vm.RAMMB
	h.usedBWMbps -= vm.BWMbps
	h.usedStorage -= vm.StorageMB
	for i, id := range h.vms {
		if id == vm.ID {
			h.vms = append(h.vms[:i], h.vms[i+1:]...)
			break
		}
	}
}

// RAMUsageRatio returns reserved RAM as a fraction of capacity.
func (h *Host) RAMUsageRatio() float64 {
	if h.RAMMB == 0 {
		return 0
	}
	return float64(h.usedRAMMB) / float64(h.RAMMB)
}

// recordState appends a utilization sample when history is enabled.
func (h *Host) recordState(t, utilization float64) {
	if !h.StateHistoryEnabled {
		return
	}
	h.StateHistory = append(h.StateHistory, HostStateEntry{
		Time:        t,
		Utilization: utilization,
		PowerW:      h.Power.PowerW(utilization),
	})
}
