package sim

// VMID identifies a VM within an episode. Ids are assigned monotonically by
// the gateway and never reused, so a VM's id doubles as its observation
// slot index.
type VMID int

// NoHost / NoVM mark unset id references.
const (
	NoHost HostID = -1
	NoVM   VMID   = -1
)

// VMType tags the size class of a VM. Medium and large are integer
// multiples of the small base bundle.
type VMType int

const (
	VMTypeSmall VMType = iota + 1
	VMTypeMedium
	VMTypeLarge
)

func (t VMType) String() string {
	switch t {
	case VMTypeSmall:
		return "S"
	case VMTypeMedium:
		return "M"
	case VMTypeLarge:
		return "L"
	default:
		return "?"
	}
}

// VMState is the lifecycle state of a VM.
type VMState int

const (
	VMPending VMState = iota
	VMRunning
	VMFailed
	VMDestroyed
)

func (s VMState) String() string {
	switch s {
	case VMPending:
		return "Pending"
	case VMRunning:
		return "Running"
	case VMFailed:
		return "Failed"
	case VMDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// VM is a slice of a host. Its host reference is NoHost until placement and
// fixed afterwards. A VM executes cloudlets only while Running.
type VM struct {
	ID        VMID
	Type      VMType
	Host      HostID
	PEs       int
	PEMips    int
	RAMMB     int64
	BWMbps    int64
	StorageMB int64

	SubmissionDelay float64
	ShutdownDelay   float64

	// Residency window for cost accounting. DestroyedAt stays negative
	// while the VM is alive.
	CreatedAt   float64
	DestroyedAt float64

	State VMState

	// Set when a destroy action is accepted; the VM stops admitting new
	// cloudlets while the shutdown event is pending.
	ShutdownRequested bool

	Scheduler *CloudletScheduler
}

// FreePEs returns processing elements not allocated to running cloudlets.
func (vm *VM) FreePEs() int {
	return vm.PEs - vm.Scheduler.UsedPEs()
}

// CPUPercent returns the VM's utilization in [0,1].
func (vm *VM) CPUPercent() float64 {
	return vm.Scheduler.CPUPercent()
}

// AcceptsCloudlets reports whether the VM may receive new work.
func (vm *VM) AcceptsCloudlets() bool {
	return vm.State == VMRunning && !vm.ShutdownRequested
}
