package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greendc-sim/greendc-sim/sim/workload"
)

// brokerFixture wires a datacenter with one 16-pe host, one running 2-pe VM
// (id 0), and a broker over the given workload items.
func brokerFixture(t *testing.T, items []workload.Item) (*Broker, *Datacenter, *Bus) {
	t.Helper()
	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 16, 65536))
	vm := &VM{
		ID: 0, Type: VMTypeSmall, Host: NoHost, PEs: 2, RAMMB: 1024, BWMbps: 100, StorageMB: 100,
		State: VMRunning, Scheduler: NewCloudletScheduler(SchedSpaceShared, 2),
	}
	require.NoError(t, dc.PlaceVM(vm))
	bus := NewBus()
	return NewBroker(workload.NewSource(items), dc, bus), dc, bus
}

func TestBroker_PollArrivals_MovesDueItemsOnly(t *testing.T) {
	b, _, _ := brokerFixture(t, []workload.Item{
		{ID: 0, ArrivalTime: 0, LengthMI: 1000, PEs: 1},
		{ID: 1, ArrivalTime: 5, LengthMI: 1000, PEs: 1},
		{ID: 2, ArrivalTime: 10, LengthMI: 1000, PEs: 1},
	})

	assert.Equal(t, 2, b.PollArrivals(5))
	assert.Equal(t, 2, b.WaitingCount())
	assert.False(t, b.WorkloadExhausted())

	assert.Equal(t, 1, b.PollArrivals(100))
	assert.True(t, b.WorkloadExhausted())
	assert.Equal(t, 3, b.TotalArrived())
}

func TestBroker_AssignHead_DispatchesAndStarts(t *testing.T) {
	b, dc, _ := brokerFixture(t, []workload.Item{
		{ID: 7, ArrivalTime: 0, LengthMI: 1000, PEs: 1},
	})
	b.PollArrivals(0)

	require.NoError(t, b.AssignHeadToVM(0, 0))
	assert.Equal(t, 0, b.WaitingCount())

	c := dc.Cloudlet(7)
	require.NotNil(t, c)
	assert.Equal(t, CloudletRunning, c.State)
	assert.Equal(t, VMID(0), c.VM)
	assert.Equal(t, 0.0, c.SubmissionTime)
	assert.Equal(t, 0.0, c.StartTime)
}

func TestBroker_AssignHead_InvalidCasesLeaveStateUntouched(t *testing.T) {
	b, dc, _ := brokerFixture(t, []workload.Item{
		{ID: 0, ArrivalTime: 0, LengthMI: 1000, PEs: 4}, // wider than the 2-pe VM
	})

	// Empty queue.
	err := b.AssignHeadToVM(0, 0)
	assert.True(t, errors.Is(err, ErrInvalidAssignment))

	b.PollArrivals(0)

	// Unknown VM.
	err = b.AssignHeadToVM(99, 0)
	assert.True(t, errors.Is(err, ErrInvalidAssignment))
	assert.Equal(t, 1, b.WaitingCount())

	// Over-capacity VM.
	err = b.AssignHeadToVM(0, 0)
	assert.True(t, errors.Is(err, ErrInvalidAssignment))
	assert.Equal(t, 1, b.WaitingCount())
	assert.Empty(t, dc.VM(0).Scheduler.Running())

	// Not-running VM.
	dc.VM(0).State = VMPending
	err = b.AssignHeadToVM(0, 0)
	assert.True(t, errors.Is(err, ErrInvalidAssignment))
}

func TestBroker_FinishedWaitTimes_DrainedPerStep(t *testing.T) {
	b, dc, bus := brokerFixture(t, []workload.Item{
		{ID: 0, ArrivalTime: 0, LengthMI: 1000, PEs: 1},
	})
	b.PollArrivals(0)

	// Assign at t=3: the cloudlet waited 3 seconds.
	require.NoError(t, b.AssignHeadToVM(0, 3))
	dc.AdvanceExecution(3, 5, bus) // finishes at 4s (1000 MI at 1000 MIPS)

	waits := b.DrainFinishedWaitTimes()
	require.Len(t, waits, 1)
	assert.InDelta(t, 3.0, waits[0], 1e-9)

	// Second drain is empty.
	assert.Empty(t, b.DrainFinishedWaitTimes())
}

func TestBroker_Requeue_AppendsToTail(t *testing.T) {
	b, _, _ := brokerFixture(t, []workload.Item{
		{ID: 0, ArrivalTime: 0, LengthMI: 1000, PEs: 1},
	})
	b.PollArrivals(0)

	c := NewCloudlet(42, 0, 500, 1, 0, 0)
	b.Requeue(c)
	assert.Equal(t, 2, b.WaitingCount())
	assert.Equal(t, CloudletID(0), b.PeekWaiting().ID)
}
