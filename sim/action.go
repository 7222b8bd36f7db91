package sim

// ActionType discriminates the structured action variants.
type ActionType int

const (
	ActionNoOp ActionType = iota
	ActionAssign
	ActionCreateVM
	ActionDestroyVM
)

func (t ActionType) String() string {
	switch t {
	case ActionNoOp:
		return "no-op"
	case ActionAssign:
		return "assign"
	case ActionCreateVM:
		return "create-vm"
	case ActionDestroyVM:
		return "destroy-vm"
	default:
		return "unknown"
	}
}

// Action is the per-step control input. Both wire variants (simple scalar
// and structured tuple) normalize into this form.
type Action struct {
	Type       ActionType
	TargetVM   VMID
	TargetHost HostID
	VMType     VMType
}

// NoOpAction returns the do-nothing action.
func NoOpAction() Action {
	return Action{Type: ActionNoOp, TargetVM: NoVM, TargetHost: NoHost}
}

// SimpleAction decodes the scalar variant: -1 is a no-op, any non-negative
// value assigns the waiting-queue head to that VM.
func SimpleAction(targetVM int) Action {
	if targetVM < 0 {
		return NoOpAction()
	}
	return Action{Type: ActionAssign, TargetVM: VMID(targetVM), TargetHost: NoHost}
}

// StructuredAction decodes the tuple variant
// [action_type, target_vm_id, target_host_id, vm_type_index] with
// vm_type_index 0=S, 1=M, 2=L.
func StructuredAction(actionType, targetVM, targetHost, vmTypeIndex int) Action {
	return Action{
		Type:       ActionType(actionType),
		TargetVM:   VMID(targetVM),
		TargetHost: HostID(targetHost),
		VMType:     VMType(vmTypeIndex + 1),
	}
}
