package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/greendc-sim/greendc-sim/sim"
)

// LoadConfig reads an environment configuration YAML over the defaults.
// An empty path returns the defaults untouched.
func LoadConfig(path string) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	logrus.Infof("loaded config from %s", path)
	return cfg, nil
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate an environment config file and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logrus.Info("config is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}
