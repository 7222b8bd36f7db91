package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greendc-sim/greendc-sim/sim/workload"
)

func TestVmSlotBound(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		maxVms  int
		want    int
	}{
		{"floor of ten", 0, 0, 10},
		{"initial plus headroom", 20, 0, 22},
		{"configured max wins", 5, 40, 40},
		{"headroom beats small max", 20, 15, 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.InitialSVmCount = tt.initial
			cfg.InitialMVmCount = 0
			cfg.InitialLVmCount = 0
			cfg.MaxVms = tt.maxVms
			assert.Equal(t, tt.want, vmSlotBound(&cfg))
		})
	}
}

func TestBuildObservation_FixedShapeAndPadding(t *testing.T) {
	// GIVEN 2 hosts and a single running VM in a 10-slot observation
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 16, 65536))
	dc.AddHost(testHost(1, 16, 65536))
	vm := &VM{
		ID: 0, Type: VMTypeMedium, Host: NoHost, PEs: 4, RAMMB: 2048, BWMbps: 100, StorageMB: 100,
		State: VMRunning, Scheduler: NewCloudletScheduler(SchedSpaceShared, 4),
	}
	require.NoError(t, dc.PlaceVM(vm))
	broker := NewBroker(workload.NewSource(nil), dc, NewBus())

	obs := BuildObservation(dc, broker, 10, 0, 0)

	assert.Len(t, obs.HostLoads, 2)
	assert.Len(t, obs.VmLoads, 10)
	assert.Len(t, obs.VmTypes, 10)
	assert.Len(t, obs.VmHostMap, 10)
	assert.Len(t, obs.VmAvailablePes, 10)
	assert.Equal(t, 2, obs.ActualHostCount)
	assert.Equal(t, 1, obs.ActualVmCount)

	assert.Equal(t, int(VMTypeMedium), obs.VmTypes[0])
	assert.Equal(t, 4, obs.VmAvailablePes[0])
	for slot := 1; slot < 10; slot++ {
		assert.Equal(t, 0, obs.VmTypes[slot])
		assert.Equal(t, -1, obs.VmHostMap[slot])
		assert.Equal(t, 0, obs.VmAvailablePes[slot])
	}
}

func TestBuildObservation_QueueFeatures(t *testing.T) {
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 16, 65536))
	broker := NewBroker(workload.NewSource([]workload.Item{
		{ID: 0, ArrivalTime: 0, LengthMI: 4000, PEs: 1},
		{ID: 1, ArrivalTime: 0, LengthMI: 100, PEs: 3},
		{ID: 2, ArrivalTime: 0, LengthMI: 100, PEs: 4},
		{ID: 3, ArrivalTime: 0, LengthMI: 100, PEs: 8},
	}), dc, NewBus())
	broker.PollArrivals(0)

	obs := BuildObservation(dc, broker, 10, 0, 5.0)

	assert.Equal(t, 4, obs.WaitingCloudlets)
	assert.Equal(t, 1, obs.NextCloudletPes)
	assert.Equal(t, int64(4000), obs.NextCloudletMi)
	assert.InDelta(t, 5.0, obs.NextCloudletWaitTime, 1e-9)
	assert.Equal(t, []int{1, 2, 1}, obs.QueuePesDistribution)
}

func TestBuildObservation_LoadsWithinBounds(t *testing.T) {
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 4, 65536))
	vm := &VM{
		ID: 0, Type: VMTypeSmall, Host: NoHost, PEs: 2, RAMMB: 1024, BWMbps: 100, StorageMB: 100,
		State: VMRunning, Scheduler: NewCloudletScheduler(SchedSpaceShared, 2),
	}
	require.NoError(t, dc.PlaceVM(vm))
	c := NewCloudlet(0, 0, 1e6, 2, 0, 0)
	dc.RegisterCloudlet(c)
	dc.DispatchCloudlet(c, vm, 0)
	broker := NewBroker(workload.NewSource(nil), dc, NewBus())

	obs := BuildObservation(dc, broker, 10, 0, 0)

	for i, load := range obs.HostLoads {
		assert.GreaterOrEqual(t, load, 0.0, "host %d", i)
		assert.LessOrEqual(t, load, 1.0, "host %d", i)
	}
	for i, load := range obs.VmLoads {
		assert.GreaterOrEqual(t, load, 0.0, "vm slot %d", i)
		assert.LessOrEqual(t, load, 1.0, "vm slot %d", i)
	}
	assert.Equal(t, 1.0, obs.VmLoads[0])
	assert.InDelta(t, 0.5, obs.HostLoads[0], 1e-9)
}

func TestBuildObservation_DestroyedVMFreesSlot(t *testing.T) {
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 16, 65536))
	vm := &VM{
		ID: 0, Type: VMTypeSmall, Host: NoHost, PEs: 2, RAMMB: 1024, BWMbps: 100, StorageMB: 100,
		State: VMRunning, Scheduler: NewCloudletScheduler(SchedSpaceShared, 2),
	}
	require.NoError(t, dc.PlaceVM(vm))
	vm.State = VMDestroyed
	broker := NewBroker(workload.NewSource(nil), dc, NewBus())

	obs := BuildObservation(dc, broker, 10, 0, 0)
	assert.Equal(t, 0, obs.ActualVmCount)
	assert.Equal(t, 0, obs.VmTypes[0])
	assert.Equal(t, -1, obs.VmHostMap[0])
}

func TestInfrastructureTree_Encoding(t *testing.T) {
	// GIVEN one 8-pe host with one 2-pe VM running one 1-pe cloudlet
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 8, 65536))
	vm := &VM{
		ID: 0, Type: VMTypeSmall, Host: NoHost, PEs: 2, RAMMB: 1024, BWMbps: 100, StorageMB: 100,
		State: VMRunning, Scheduler: NewCloudletScheduler(SchedSpaceShared, 2),
	}
	require.NoError(t, dc.PlaceVM(vm))
	c := NewCloudlet(0, 0, 1e6, 1, 0, 0)
	dc.RegisterCloudlet(c)
	dc.DispatchCloudlet(c, vm, 0)

	tree := buildInfrastructureTree(dc)

	// [total_pes, H, host_pes, vm_count, vm_pes, cloudlet_count, cloudlet_pes, 0]
	assert.Equal(t, []int{8, 1, 8, 1, 2, 1, 1, 0}, tree)
}
