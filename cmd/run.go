package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/greendc-sim/greendc-sim/sim"
)

var (
	runSeed      int64
	runMaxSteps  int
	runRenderEnd bool
)

// runCmd executes one full episode headless with a trivial built-in policy:
// assign the queue head to the first running VM that can take it, else
// no-op. Useful as a smoke harness and a baseline.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one episode with the built-in first-fit policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}

		gw := sim.NewGateway()
		defer gw.Close()
		if err := gw.Configure(cfg); err != nil {
			return err
		}
		obs, _, err := gw.Reset(runSeed)
		if err != nil {
			return err
		}
		logrus.Infof("episode started: %d hosts, %d VM slots", obs.ActualHostCount, len(obs.VmLoads))

		totalReward := 0.0
		steps := 0
		for steps < runMaxSteps {
			action := pickAction(obs)
			var reward float64
			var terminated, truncated bool
			var info sim.StepInfo
			obs, reward, terminated, truncated, info, err = gw.Step(action)
			if err != nil {
				return err
			}
			totalReward += reward
			steps++
			if terminated || truncated {
				logrus.Infof("episode over at step %d (terminated=%v truncated=%v): completed %d/%d, energy %.4f Wh (green %.1f%%)",
					steps, terminated, truncated,
					info.EpisodeCompletedCloudlets, info.EpisodeTotalCloudlets,
					info.CumulativeEnergyWh, info.GreenRatio*100)
				break
			}
		}
		logrus.Infof("total reward over %d steps: %.4f", steps, totalReward)
		summary := gw.Summary()
		logrus.Infof("wait time avg/p50/p95/p99: %.1f/%.1f/%.1f/%.1fs  cost: %.4f  co2: %.4fkg",
			summary.AvgWaitTime, summary.P50WaitTime, summary.P95WaitTime, summary.P99WaitTime,
			summary.TotalCost, summary.CarbonKg)
		if runRenderEnd {
			fmt.Print(gw.Render())
		}
		return nil
	},
}

// pickAction implements the baseline policy on top of the observation the
// way an external agent would: queue head to the first VM with enough free
// pes.
func pickAction(obs sim.Observation) sim.Action {
	if obs.WaitingCloudlets == 0 {
		return sim.NoOpAction()
	}
	for slot, free := range obs.VmAvailablePes {
		if obs.VmTypes[slot] != 0 && free >= obs.NextCloudletPes {
			return sim.SimpleAction(slot)
		}
	}
	return sim.NoOpAction()
}

func init() {
	runCmd.Flags().Int64Var(&runSeed, "seed", 42, "Episode seed")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 100000, "Hard cap on steps")
	runCmd.Flags().BoolVar(&runRenderEnd, "render", false, "Render the final state")
	rootCmd.AddCommand(runCmd)
}
