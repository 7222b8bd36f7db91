package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func costChars() DatacenterCharacteristics {
	return DatacenterCharacteristics{
		CostPerSecond:  0.01,
		CostPerRAM:     0.001,
		CostPerBW:      0.0005,
		CostPerStorage: 0.0001,
	}
}

func TestComputeCosts_ChargesFinishedAndRunningCloudlets(t *testing.T) {
	dc := NewDatacenter(costChars(), NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 16, 65536))
	vm := testVM(4, 2048)
	vm.State = VMRunning
	vm.DestroyedAt = timeUnset
	require.NoError(t, dc.PlaceVM(vm))

	done := NewCloudlet(0, 0, 1000, 1, 100, 50)
	done.StartTime = 1
	done.FinishTime = 5
	done.State = CloudletFinished
	dc.RegisterCloudlet(done)

	running := NewCloudlet(1, 0, 1000, 1, 200, 0)
	running.StartTime = 2
	running.State = CloudletRunning
	dc.RegisterCloudlet(running)

	r := dc.ComputeCosts(10)

	// done: 4 s, running: 8 s so far.
	assert.InDelta(t, 12*0.01, r.ProcessingCost, 1e-12)
	assert.InDelta(t, (100+50+200)*0.0005, r.BandwidthCost, 1e-12)
	assert.InDelta(t, (100+200)*0.0001, r.StorageCost, 1e-12)
	// VM resident for 10 s.
	assert.InDelta(t, 2048*(10.0/3600)*0.001, r.RAMCost, 1e-12)
	assert.InDelta(t, r.ProcessingCost+r.RAMCost+r.BandwidthCost+r.StorageCost, r.Total(), 1e-12)
}

func TestComputeCosts_DestroyedVMStopsAccruingRAM(t *testing.T) {
	dc := NewDatacenter(costChars(), NewVmAllocationPolicy(AllocationFirstFit))
	dc.AddHost(testHost(0, 16, 65536))
	vm := testVM(2, 1024)
	vm.DestroyedAt = timeUnset
	require.NoError(t, dc.PlaceVM(vm))
	vm.DestroyedAt = 100

	early := dc.ComputeCosts(100).RAMCost
	late := dc.ComputeCosts(5000).RAMCost
	assert.Equal(t, early, late)
}

func TestComputeCosts_UnstartedCloudletsAreFree(t *testing.T) {
	dc := NewDatacenter(costChars(), NewVmAllocationPolicy(AllocationFirstFit))
	c := NewCloudlet(0, 0, 1000, 1, 500, 500)
	dc.RegisterCloudlet(c)
	r := dc.ComputeCosts(100)
	assert.Zero(t, r.ProcessingCost)
	assert.Zero(t, r.BandwidthCost)
}

func TestSummary_AggregatesWaitDistributionAndCost(t *testing.T) {
	cfg := testConfig()
	cfg.CloudletTraceFile = writeTrace(t,
		"0,0,2000,1,100,50",
		"1,0,2000,1,100,50",
	)
	gw := NewGateway()
	defer gw.Close()
	mustReset(t, gw, cfg, 1)

	_, _, _, _, _, err := gw.Step(SimpleAction(0))
	require.NoError(t, err)
	_, _, terminated, _, _, err := gw.Step(SimpleAction(0))
	require.NoError(t, err)
	require.True(t, terminated)

	s := gw.Summary()
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1.0, s.CompletionRate)
	assert.Equal(t, 2, s.Steps)
	// First cloudlet waited 0 s, second 1 s.
	assert.InDelta(t, 0.5, s.AvgWaitTime, 1e-9)
	assert.InDelta(t, 1.0, s.MaxWaitTime, 1e-9)
	assert.Greater(t, s.TotalCost, 0.0)
	assert.Greater(t, s.EnergyWh, 0.0)
}
