package sim

import (
	"go.uber.org/multierr"
)

// Workload source modes.
const (
	WorkloadModeSWF       = "swf"
	WorkloadModeCSV       = "csv"
	WorkloadModeSynthetic = "synthetic"
)

// Cloudlet scheduler policies.
const (
	SchedulerSpaceShared = "spaceshared"
	SchedulerTimeShared  = "timeshared"
)

// VM allocation policies.
const (
	AllocationFirstFit = "firstfit"
)

// Green time-series interpolation modes.
const (
	InterpolationLinear = "linear"
	InterpolationSpline = "spline"
)

// HostProfile bundles the resource and power specification of a named host
// class used in heterogeneous mode. Profile values are data, not policy.
type HostProfile struct {
	PEs                int     `yaml:"pes"`
	PEMips             int     `yaml:"pe_mips"`
	RAMMB              int64   `yaml:"ram"`
	BWMbps             int64   `yaml:"bw"`
	StorageMB          int64   `yaml:"storage"`
	MaxPowerW          float64 `yaml:"max_power_w"`
	StaticPowerPercent float64 `yaml:"static_power_percent"`
}

// GreenConfig selects and parameterizes the renewable power provider.
type GreenConfig struct {
	Enabled           bool    `yaml:"enabled"`
	TurbineID         string  `yaml:"turbine_id"`
	WindDataFile      string  `yaml:"wind_data_file"`
	SamplePeriodSec   float64 `yaml:"sample_period_sec"`
	Interpolation     string  `yaml:"interpolation"`
	CarbonFactorBrown float64 `yaml:"carbon_factor_brown"` // kg CO2 per kWh of grid power
	CarbonFactorGreen float64 `yaml:"carbon_factor_green"` // kg CO2 per kWh of renewable power
}

// RewardConfig holds the per-component reward coefficients. A coefficient of
// zero disables its component entirely.
type RewardConfig struct {
	WaitTimeCoef      float64 `yaml:"reward_wait_time_coef"`
	UnutilizationCoef float64 `yaml:"reward_unutilization_coef"`
	QueuePenaltyCoef  float64 `yaml:"reward_queue_penalty_coef"`
	InvalidActionCoef float64 `yaml:"reward_invalid_action_coef"`
	EnergyCoef        float64 `yaml:"reward_energy_coef"`
}

// Config is the full environment configuration record. Configure stores it
// verbatim; Reset materializes a simulation from it.
type Config struct {
	// Datacenter / hosts (homogeneous mode).
	HostsCount         int     `yaml:"hosts_count"`
	HostPEs            int     `yaml:"host_pes"`
	HostPEMips         int     `yaml:"host_pe_mips"`
	HostRAMMB          int64   `yaml:"host_ram"`
	HostBWMbps         int64   `yaml:"host_bw"`
	HostStorageMB      int64   `yaml:"host_storage"`
	HostMaxPowerW      float64 `yaml:"host_max_power_w"`
	HostStaticPercent  float64 `yaml:"host_static_power_percent"`
	HostStateHistory   bool    `yaml:"host_state_history"`

	// Heterogeneous mode: named profiles with per-profile counts. Hosts are
	// created profile by profile in lexicographic profile-name order so that
	// host ids are stable across runs.
	EnableHeterogeneousHosts bool                   `yaml:"enable_heterogeneous_hosts"`
	HostProfiles             map[string]HostProfile `yaml:"host_profiles"`
	HostProfileCounts        map[string]int         `yaml:"host_profile_counts"`

	// Datacenter cost characteristics.
	CostPerSecond float64 `yaml:"cost_per_second"`
	CostPerRAM    float64 `yaml:"cost_per_ram"`
	CostPerBW     float64 `yaml:"cost_per_bw"`
	CostPerStorage float64 `yaml:"cost_per_storage"`

	// VM sizing. M and L are integer multiples of S.
	SmallVmPEs         int   `yaml:"small_vm_pes"`
	SmallVmRAMMB       int64 `yaml:"small_vm_ram"`
	SmallVmBWMbps      int64 `yaml:"small_vm_bw"`
	SmallVmStorageMB   int64 `yaml:"small_vm_storage"`
	MediumVmMultiplier int   `yaml:"medium_vm_multiplier"`
	LargeVmMultiplier  int   `yaml:"large_vm_multiplier"`

	// Initial fleet.
	InitialSVmCount int `yaml:"initial_s_vm_count"`
	InitialMVmCount int `yaml:"initial_m_vm_count"`
	InitialLVmCount int `yaml:"initial_l_vm_count"`

	// Upper bound used when sizing observation VM slots. Zero means derive
	// from the initial fleet.
	MaxVms int `yaml:"max_vms"`

	// Workload.
	WorkloadMode         string  `yaml:"workload_mode"`
	CloudletTraceFile    string  `yaml:"cloudlet_trace_file"`
	MaxCloudletsToCreate int     `yaml:"max_cloudlets_to_create_from_workload_file"`
	WorkloadReaderMips   float64 `yaml:"workload_reader_mips"`
	SplitLargeCloudlets  bool    `yaml:"split_large_cloudlets"`
	MaxCloudletPEs       int     `yaml:"max_cloudlet_pes"`

	// Synthetic workload (workload_mode: synthetic): Poisson arrivals with
	// Gaussian lengths, drawn from the episode seed.
	SyntheticRate         float64 `yaml:"synthetic_rate"`
	SyntheticLengthMeanMI float64 `yaml:"synthetic_length_mean_mi"`
	SyntheticLengthStdMI  float64 `yaml:"synthetic_length_std_mi"`
	SyntheticLengthMinMI  int64   `yaml:"synthetic_length_min_mi"`
	SyntheticLengthMaxMI  int64   `yaml:"synthetic_length_max_mi"`

	// Timing.
	SimulationTimestep   float64 `yaml:"simulation_timestep"`
	MinTimeBetweenEvents float64 `yaml:"min_time_between_events"`
	VmStartupDelay       float64 `yaml:"vm_startup_delay"`
	VmShutdownDelay      float64 `yaml:"vm_shutdown_delay"`
	MaxEpisodeLength     int     `yaml:"max_episode_length"`

	// Policy seams.
	CloudletSchedulerPolicy string `yaml:"cloudlet_scheduler"`
	VmAllocationPolicyName  string `yaml:"vm_allocation_policy"`

	// Destroying a VM with running cloudlets fails them by default; with
	// requeue enabled they go back to the broker queue tail instead.
	RequeueOnVmDestroy bool `yaml:"requeue_on_vm_destroy"`

	Reward RewardConfig `yaml:",inline"`
	Green  GreenConfig  `yaml:"green"`

	// Optional per-step results CSV (empty disables persistence).
	ResultsFile string `yaml:"results_file"`
}

// DefaultConfig returns the documented defaults. Reward coefficients default
// to a mildly shaped penalty mix; the energy term is enabled.
func DefaultConfig() Config {
	return Config{
		HostsCount:        10,
		HostPEs:           16,
		HostPEMips:        2000,
		HostRAMMB:         65536,
		HostBWMbps:        10000,
		HostStorageMB:     1000000,
		HostMaxPowerW:     250,
		HostStaticPercent: 0.7,

		CostPerSecond:  0.01,
		CostPerRAM:     0.001,
		CostPerBW:      0.0005,
		CostPerStorage: 0.0001,

		SmallVmPEs:         2,
		SmallVmRAMMB:       8192,
		SmallVmBWMbps:      1000,
		SmallVmStorageMB:   20000,
		MediumVmMultiplier: 2,
		LargeVmMultiplier:  4,

		InitialSVmCount: 4,
		InitialMVmCount: 2,
		InitialLVmCount: 1,

		WorkloadMode:         WorkloadModeCSV,
		MaxCloudletsToCreate: 1000,
		WorkloadReaderMips:   1000,
		SplitLargeCloudlets:  true,
		MaxCloudletPEs:       8,

		SyntheticRate:         0.5,
		SyntheticLengthMeanMI: 20000,
		SyntheticLengthStdMI:  5000,
		SyntheticLengthMinMI:  1000,
		SyntheticLengthMaxMI:  100000,

		SimulationTimestep:   1.0,
		MinTimeBetweenEvents: 0.1,
		VmStartupDelay:       56.0,
		VmShutdownDelay:      10.0,
		MaxEpisodeLength:     1000,

		CloudletSchedulerPolicy: SchedulerSpaceShared,
		VmAllocationPolicyName:  AllocationFirstFit,

		Reward: RewardConfig{
			WaitTimeCoef:      0.3,
			UnutilizationCoef: 0.2,
			QueuePenaltyCoef:  0.2,
			InvalidActionCoef: 1.0,
			EnergyCoef:        0.3,
		},
		Green: GreenConfig{
			SamplePeriodSec:   600,
			Interpolation:     InterpolationLinear,
			CarbonFactorBrown: 0.5,
			CarbonFactorGreen: 0.01,
		},
	}
}

// Validate checks the configuration for internal consistency. All problems
// are reported together so the controller can fix a config in one pass.
func (c *Config) Validate() error {
	var errs error

	if c.EnableHeterogeneousHosts {
		if len(c.HostProfiles) == 0 {
			errs = multierr.Append(errs, configErrorf("heterogeneous hosts enabled but no host_profiles given"))
		}
		total := 0
		for name, count := range c.HostProfileCounts {
			if _, ok := c.HostProfiles[name]; !ok {
				errs = multierr.Append(errs, configErrorf("host_profile_counts references unknown profile %q", name))
			}
			if count < 0 {
				errs = multierr.Append(errs, configErrorf("profile %q has negative count %d", name, count))
			}
			total += count
		}
		if c.HostsCount > 0 && total != c.HostsCount {
			errs = multierr.Append(errs, configErrorf("host profile counts sum to %d, hosts_count is %d", total, c.HostsCount))
		}
		if total == 0 {
			errs = multierr.Append(errs, configErrorf("heterogeneous host counts sum to zero"))
		}
	} else {
		if c.HostsCount <= 0 {
			errs = multierr.Append(errs, configErrorf("hosts_count must be positive, got %d", c.HostsCount))
		}
		if c.HostPEs <= 0 || c.HostPEMips <= 0 {
			errs = multierr.Append(errs, configErrorf("host_pes and host_pe_mips must be positive"))
		}
		if c.HostStaticPercent < 0 || c.HostStaticPercent > 1 {
			errs = multierr.Append(errs, configErrorf("host_static_power_percent must be in [0,1], got %v", c.HostStaticPercent))
		}
	}

	if c.SmallVmPEs <= 0 {
		errs = multierr.Append(errs, configErrorf("small_vm_pes must be positive, got %d", c.SmallVmPEs))
	}
	if c.MediumVmMultiplier < 1 || c.LargeVmMultiplier < 1 {
		errs = multierr.Append(errs, configErrorf("vm multipliers must be >= 1"))
	}
	if c.InitialSVmCount < 0 || c.InitialMVmCount < 0 || c.InitialLVmCount < 0 {
		errs = multierr.Append(errs, configErrorf("initial VM counts must be non-negative"))
	}

	switch c.WorkloadMode {
	case WorkloadModeSWF, WorkloadModeCSV, WorkloadModeSynthetic, "":
	default:
		errs = multierr.Append(errs, configErrorf("unknown workload_mode %q", c.WorkloadMode))
	}
	if c.WorkloadMode == WorkloadModeSWF && c.WorkloadReaderMips <= 0 {
		errs = multierr.Append(errs, configErrorf("workload_reader_mips must be positive for SWF replay"))
	}
	if c.WorkloadMode == WorkloadModeSynthetic {
		if c.SyntheticRate <= 0 {
			errs = multierr.Append(errs, configErrorf("synthetic_rate must be positive, got %v", c.SyntheticRate))
		}
		if c.SyntheticLengthMeanMI <= 0 {
			errs = multierr.Append(errs, configErrorf("synthetic_length_mean_mi must be positive, got %v", c.SyntheticLengthMeanMI))
		}
	}
	if c.MaxCloudletPEs <= 0 {
		errs = multierr.Append(errs, configErrorf("max_cloudlet_pes must be positive, got %d", c.MaxCloudletPEs))
	}

	if c.SimulationTimestep <= 0 {
		errs = multierr.Append(errs, configErrorf("simulation_timestep must be positive, got %v", c.SimulationTimestep))
	}
	if c.MinTimeBetweenEvents <= 0 {
		errs = multierr.Append(errs, configErrorf("min_time_between_events must be positive, got %v", c.MinTimeBetweenEvents))
	}
	if c.MinTimeBetweenEvents > c.SimulationTimestep {
		errs = multierr.Append(errs, configErrorf("min_time_between_events %v exceeds simulation_timestep %v", c.MinTimeBetweenEvents, c.SimulationTimestep))
	}
	if c.MaxEpisodeLength <= 0 {
		errs = multierr.Append(errs, configErrorf("max_episode_length must be positive, got %d", c.MaxEpisodeLength))
	}

	switch c.CloudletSchedulerPolicy {
	case SchedulerSpaceShared, SchedulerTimeShared, "":
	default:
		errs = multierr.Append(errs, configErrorf("unknown cloudlet_scheduler %q", c.CloudletSchedulerPolicy))
	}
	switch c.VmAllocationPolicyName {
	case AllocationFirstFit, "":
	default:
		errs = multierr.Append(errs, configErrorf("unknown vm_allocation_policy %q", c.VmAllocationPolicyName))
	}

	if c.Green.Enabled {
		if c.Green.WindDataFile == "" {
			errs = multierr.Append(errs, configErrorf("green energy enabled but wind_data_file is empty"))
		}
		if c.Green.SamplePeriodSec <= 0 {
			errs = multierr.Append(errs, configErrorf("green sample_period_sec must be positive, got %v", c.Green.SamplePeriodSec))
		}
		switch c.Green.Interpolation {
		case InterpolationLinear, InterpolationSpline, "":
		default:
			errs = multierr.Append(errs, configErrorf("unknown green interpolation %q", c.Green.Interpolation))
		}
	}

	for name, coef := range map[string]float64{
		"reward_wait_time_coef":      c.Reward.WaitTimeCoef,
		"reward_unutilization_coef":  c.Reward.UnutilizationCoef,
		"reward_queue_penalty_coef":  c.Reward.QueuePenaltyCoef,
		"reward_invalid_action_coef": c.Reward.InvalidActionCoef,
		"reward_energy_coef":         c.Reward.EnergyCoef,
	} {
		if coef < 0 {
			errs = multierr.Append(errs, configErrorf("%s must be non-negative, got %v", name, coef))
		}
	}

	return errs
}

// vmSpec returns the resource bundle for a VM type derived from the small-VM
// base and the type multiplier.
func (c *Config) vmSpec(t VMType) (pes int, ram, bw, storage int64) {
	mult := 1
	switch t {
	case VMTypeMedium:
		mult = c.MediumVmMultiplier
	case VMTypeLarge:
		mult = c.LargeVmMultiplier
	}
	return c.SmallVmPEs * mult,
		c.SmallVmRAMMB * int64(mult),
		c.SmallVmBWMbps * int64(mult),
		c.SmallVmStorageMB * int64(mult)
}
