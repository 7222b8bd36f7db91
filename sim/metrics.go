package sim

import (
	"encoding/csv"
	"fmt"
	"os"
)

// completionWindowSize is the rolling window of per-step completion deltas
// summarized in the observation.
const completionWindowSize = 10

// EpisodeState holds the per-episode scalars and histories the gateway
// owns: step counter, completion window, previous reward decomposition.
type EpisodeState struct {
	CurrentStep       int
	PrevFinishedCount int
	LastReward        RewardComponents

	completionWindow [completionWindowSize]int
	windowPos        int
}

// NewEpisodeState returns a zeroed episode state.
func NewEpisodeState() *EpisodeState {
	return &EpisodeState{}
}

// RecordCompletions pushes one step's completion delta into the rolling
// window.
func (s *EpisodeState) RecordCompletions(delta int) {
	s.completionWindow[s.windowPos%completionWindowSize] = delta
	s.windowPos++
}

// CompletedLast10Steps sums the rolling completion window.
func (s *EpisodeState) CompletedLast10Steps() int {
	total := 0
	for _, n := range s.completionWindow {
		total += n
	}
	return total
}

// StepRecord is one row of the optional per-step results file.
type StepRecord struct {
	Step             int
	Clock            float64
	Reward           float64
	RewardWaitTime   float64
	RewardUnutil     float64
	RewardQueue      float64
	RewardInvalid    float64
	RewardEnergy     float64
	PowerW           float64
	CumulativeWh     float64
	GreenWh          float64
	BrownWh          float64
	WastedGreenWh    float64
	WaitingCloudlets int
	Completed        int
}

// ResultsWriter appends per-step records to a CSV results file.
type ResultsWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewResultsWriter creates (truncating) the results file and writes the
// header row.
func NewResultsWriter(path string) (*ResultsWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create results file: %w", err)
	}
	w := csv.NewWriter(file)
	header := []string{
		"step", "clock", "reward",
		"reward_wait_time", "reward_unutilization", "reward_queue_penalty",
		"reward_invalid_action", "reward_energy",
		"power_w", "cumulative_energy_wh", "green_wh", "brown_wh", "wasted_green_wh",
		"waiting_cloudlets", "completed",
	}
	if err := w.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write results header: %w", err)
	}
	return &ResultsWriter{file: file, writer: w}, nil
}

// Append writes one step record.
func (w *ResultsWriter) Append(r StepRecord) error {
	row := []string{
		fmt.Sprintf("%d", r.Step),
		fmt.Sprintf("%.3f", r.Clock),
		fmt.Sprintf("%.6f", r.Reward),
		fmt.Sprintf("%.6f", r.RewardWaitTime),
		fmt.Sprintf("%.6f", r.RewardUnutil),
		fmt.Sprintf("%.6f", r.RewardQueue),
		fmt.Sprintf("%.6f", r.RewardInvalid),
		fmt.Sprintf("%.6f", r.RewardEnergy),
		fmt.Sprintf("%.3f", r.PowerW),
		fmt.Sprintf("%.6f", r.CumulativeWh),
		fmt.Sprintf("%.6f", r.GreenWh),
		fmt.Sprintf("%.6f", r.BrownWh),
		fmt.Sprintf("%.6f", r.WastedGreenWh),
		fmt.Sprintf("%d", r.WaitingCloudlets),
		fmt.Sprintf("%d", r.Completed),
	}
	return w.writer.Write(row)
}

// Close flushes and closes the results file.
func (w *ResultsWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
