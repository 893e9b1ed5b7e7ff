package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/lods-sim/internal/batch"
	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/report"
)

var (
	batchTrials   int
	batchWorkers  int
	batchCompare  bool
	batchScenario string
	batchDB       string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run independent trials in parallel and summarize them",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg  config.SimulationConfig
			opts []batch.Option
			sc   *batch.Scenario
			err  error
		)
		if batchScenario != "" {
			if sc, err = batch.LoadScenario(batchScenario); err != nil {
				return err
			}
			cfg = sc.Config
			opts = sc.Options()
		} else if cfg, err = loadConfig(); err != nil {
			return err
		}

		if cmd.Flags().Changed("trials") {
			cfg.Batch.Trials = batchTrials
		}
		if cmd.Flags().Changed("workers") {
			cfg.Batch.Workers = batchWorkers
		}
		if batchCompare {
			opts = append(opts, batch.WithAlgorithms(config.Algorithms()...))
		}
		if batchDB != "" {
			store, err := report.NewStore(batchDB)
			if err != nil {
				return err
			}
			defer store.Close()
			opts = append(opts, batch.WithStore(store))
		}

		_, sum, err := batch.Run(cmd.Context(), cfg, opts...)
		if err != nil {
			return err
		}
		if err := emit(cmd.OutOrStdout(), sum); err != nil {
			return err
		}
		if sc != nil {
			if violations := sc.Check(sum); len(violations) > 0 {
				return errors.Newf("scenario expectations failed:\n  %s", strings.Join(violations, "\n  "))
			}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVarP(&batchTrials, "trials", "n", 0, "trials per algorithm (default batch.trials)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "parallel trials, 0 for GOMAXPROCS")
	batchCmd.Flags().BoolVar(&batchCompare, "compare", false, "run every algorithm on the same seeds")
	batchCmd.Flags().StringVar(&batchScenario, "scenario", "", "YAML scenario with config and expectations")
	batchCmd.Flags().StringVar(&batchDB, "db", "", "SQLite file to record trials into (default in-memory)")
}
