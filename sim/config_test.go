package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadTimings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimulationTimestep = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))

	cfg = DefaultConfig()
	cfg.MinTimeBetweenEvents = 2.0 // above the 1s timestep
	assert.Error(t, cfg.Validate())
}

func TestValidate_HeterogeneousCountsMustSum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableHeterogeneousHosts = true
	cfg.HostsCount = 4
	cfg.HostProfiles = map[string]HostProfile{
		"big":   {PEs: 32, PEMips: 3000, RAMMB: 131072, BWMbps: 10000, StorageMB: 100000, MaxPowerW: 400, StaticPowerPercent: 0.7},
		"small": {PEs: 8, PEMips: 1500, RAMMB: 32768, BWMbps: 10000, StorageMB: 100000, MaxPowerW: 200, StaticPowerPercent: 0.7},
	}
	cfg.HostProfileCounts = map[string]int{"big": 1, "small": 2}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 3")

	cfg.HostProfileCounts["small"] = 3
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownProfileReference(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableHeterogeneousHosts = true
	cfg.HostsCount = 0
	cfg.HostProfiles = map[string]HostProfile{"a": {PEs: 8, PEMips: 1000, MaxPowerW: 200}}
	cfg.HostProfileCounts = map[string]int{"b": 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")
}

func TestValidate_CollectsMultipleProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostsCount = -1
	cfg.SmallVmPEs = 0
	cfg.MaxEpisodeLength = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hosts_count")
	assert.Contains(t, err.Error(), "small_vm_pes")
	assert.Contains(t, err.Error(), "max_episode_length")
}

func TestValidate_GreenRequiresDataFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Green.Enabled = true
	cfg.Green.WindDataFile = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeRewardCoefs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reward.EnergyCoef = -0.1
	assert.Error(t, cfg.Validate())
}

func TestVmSpec_MultipliesFromSmallBase(t *testing.T) {
	cfg := DefaultConfig()
	pes, ram, bw, storage := cfg.vmSpec(VMTypeLarge)
	assert.Equal(t, cfg.SmallVmPEs*4, pes)
	assert.Equal(t, cfg.SmallVmRAMMB*4, ram)
	assert.Equal(t, cfg.SmallVmBWMbps*4, bw)
	assert.Equal(t, cfg.SmallVmStorageMB*4, storage)
}

func TestBuildHosts_HeterogeneousOrderIsStable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableHeterogeneousHosts = true
	cfg.HostsCount = 3
	cfg.HostProfiles = map[string]HostProfile{
		"big":   {PEs: 32, PEMips: 3000, RAMMB: 131072, BWMbps: 10000, StorageMB: 100000, MaxPowerW: 400, StaticPowerPercent: 0.7},
		"small": {PEs: 8, PEMips: 1500, RAMMB: 32768, BWMbps: 10000, StorageMB: 100000, MaxPowerW: 200, StaticPowerPercent: 0.7},
	}
	cfg.HostProfileCounts = map[string]int{"small": 2, "big": 1}

	dc := NewDatacenter(DatacenterCharacteristics{}, NewVmAllocationPolicy(AllocationFirstFit))
	buildHosts(&cfg, dc)

	require.Len(t, dc.Hosts(), 3)
	// Lexicographic profile order: big first, then the two smalls.
	assert.Equal(t, 32, dc.Host(0).PEs)
	assert.Equal(t, 8, dc.Host(1).PEs)
	assert.Equal(t, 8, dc.Host(2).PEs)
	assert.InDelta(t, 800.0, dc.MaxTotalPowerW(), 1e-9)
}
