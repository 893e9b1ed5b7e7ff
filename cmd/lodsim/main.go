package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/logging"
)

var (
	configPath string
	logLevel   string
	jsonLogs   bool
	format     string
)

var rootCmd = &cobra.Command{
	Use:   "lodsim",
	Short: "Lods-mTI missing-tag identification simulator",
	Long: `lodsim simulates missing-tag identification over a noisy RFID channel.

Configuration comes from defaults, an optional --config file (YAML, TOML or
JSON) and LODS_* environment variables, e.g. LODS_IMPAIRMENT_BER=0.02.

Examples:
  lodsim run --seed 7                  # one trial, per-round rows as YAML
  lodsim run --show decisions -f json  # final tag decisions as JSON
  lodsim batch --trials 100 --compare  # Lods-mTI against CR-MTI
  lodsim batch --scenario noisy.yaml   # batch with expectations`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(jsonLogs, logLevel); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "yaml", "output format: yaml|json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
}

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration; the caller applies flag overrides and
// validates.
func loadConfig() (config.SimulationConfig, error) {
	return config.Load(configPath)
}

// emit writes v to w in the selected format.
func emit(w io.Writer, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return errors.Newf("unknown format %q, want yaml or json", format)
	}
}
