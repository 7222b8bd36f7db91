package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceVMOn_ValidatesHostAndCapacity(t *testing.T) {
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 4, 65536))

	vm := testVM(2, 1024)
	require.NoError(t, dc.PlaceVMOn(vm, 0))
	assert.Equal(t, HostID(0), vm.Host)
	assert.Equal(t, 1000, vm.PEMips) // inherited from the host
	assert.Equal(t, 2, dc.Host(0).FreePEs())

	// Unknown host.
	err := dc.PlaceVMOn(testVM(1, 100), 9)
	assert.True(t, errors.Is(err, ErrAllocationFailed))

	// Host full.
	wide := testVM(4, 100)
	wide.ID = 1
	err = dc.PlaceVMOn(wide, 0)
	assert.True(t, errors.Is(err, ErrAllocationFailed))
}

func TestPlaceVM_FailsWhenNothingFits(t *testing.T) {
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 2, 65536))
	err := dc.PlaceVM(testVM(4, 100))
	assert.True(t, errors.Is(err, ErrAllocationFailed))
	assert.Empty(t, dc.VMs())
}

func TestReleaseVM_ReturnsReservations(t *testing.T) {
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 8, 65536))
	vm := testVM(4, 2048)
	require.NoError(t, dc.PlaceVM(vm))
	require.Equal(t, 4, dc.Host(0).FreePEs())

	dc.ReleaseVM(vm)
	assert.Equal(t, 8, dc.Host(0).FreePEs())
	assert.Equal(t, int64(65536), dc.Host(0).FreeRAMMB())
	assert.Empty(t, dc.Host(0).VMs())
}

func TestAdvanceExecution_RecordsStateHistoryWhenEnabled(t *testing.T) {
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	h := testHost(0, 8, 65536)
	h.StateHistoryEnabled = true
	dc.AddHost(h)

	dc.AdvanceExecution(0, 1, NewBus())
	dc.AdvanceExecution(1, 2, NewBus())

	require.Len(t, h.StateHistory, 2)
	assert.Equal(t, 1.0, h.StateHistory[0].Time)
	assert.Equal(t, 0.0, h.StateHistory[0].Utilization)
	assert.InDelta(t, h.Power.IdlePowerW(), h.StateHistory[0].PowerW, 1e-9)
}
