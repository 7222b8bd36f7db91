package sim

// StepInfo is the auxiliary info record returned with every reset and step
// result. Field names follow the wire contract with the controller.
type StepInfo struct {
	AssignmentSuccess  bool `json:"assignment_success"`
	CreateVmAttempted  bool `json:"create_vm_attempted"`
	CreateVmSuccess    bool `json:"create_vm_success"`
	DestroyVmAttempted bool `json:"destroy_vm_attempted"`
	DestroyVmSuccess   bool `json:"destroy_vm_success"`
	InvalidActionTaken bool `json:"invalid_action_taken"`

	HostAffectedID int `json:"host_affected_id"`
	CoresChanged   int `json:"cores_changed"`

	CurrentClock float64 `json:"current_clock"`

	RewardWaitTime      float64 `json:"reward_wait_time"`
	RewardUnutilization float64 `json:"reward_unutilization"`
	RewardQueuePenalty  float64 `json:"reward_queue_penalty"`
	RewardInvalidAction float64 `json:"reward_invalid_action"`
	RewardEnergy        float64 `json:"reward_energy"`

	CurrentPowerW          float64 `json:"current_power_w"`
	CumulativeEnergyWh     float64 `json:"cumulative_energy_wh"`
	AverageHostUtilization float64 `json:"average_host_utilization"`

	CumulativeGreenEnergyWh float64 `json:"cumulative_green_energy_wh"`
	CumulativeBrownEnergyWh float64 `json:"cumulative_brown_energy_wh"`
	TotalWastedGreenWh      float64 `json:"total_wasted_green_wh"`
	CurrentGreenPowerW      float64 `json:"current_green_power_w"`
	GreenRatio              float64 `json:"green_ratio"`
	CarbonEmissionsKg       float64 `json:"carbon_emissions_kg"`

	GreenShortForecastMeanW float64 `json:"green_short_forecast_mean_w"`
	GreenShortForecastTrend float64 `json:"green_short_forecast_trend"`
	GreenLongForecastMeanW  float64 `json:"green_long_forecast_mean_w"`
	GreenLongForecastTrend  float64 `json:"green_long_forecast_trend"`
	GreenTimeToPeak         float64 `json:"green_time_to_peak"`

	EpisodeCost float64 `json:"episode_cost"`

	EpisodeDuration           float64 `json:"episode_duration"`
	EpisodeCompletedCloudlets int     `json:"episode_completed_cloudlets"`
	EpisodeTotalCloudlets     int     `json:"episode_total_cloudlets"`
	EpisodeCompletionRate     float64 `json:"episode_completion_rate"`

	Error string `json:"error,omitempty"`
}
