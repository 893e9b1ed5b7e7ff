// Package batch runs many independent trials in parallel and aggregates them
// through the report store.
package batch

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/engine"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/logging"
	"github.com/danielpatrickdp/lods-sim/internal/report"
)

// #region types
// Summary aggregates a batch.
type Summary struct {
	Trials      int                       `json:"trials" yaml:"trials"`
	Failed      int                       `json:"failed" yaml:"failed"`
	Timeouts    int                       `json:"timeouts" yaml:"timeouts"`
	ByAlgorithm []report.AlgorithmSummary `json:"by_algorithm" yaml:"by_algorithm"`
	Failures    []report.Failure          `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Algorithm returns the per-algorithm row for a, if any trials ran.
func (s Summary) Algorithm(a config.Algorithm) (report.AlgorithmSummary, bool) {
	for _, row := range s.ByAlgorithm {
		if row.Algorithm == string(a) {
			return row, true
		}
	}
	return report.AlgorithmSummary{}, false
}

type options struct {
	store      *report.Store
	log        *zap.SugaredLogger
	algorithms []config.Algorithm
}

// Option customises Run.
type Option func(*options)

// WithStore records trials into s instead of a private in-memory store.
func WithStore(s *report.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the parent logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// WithAlgorithms runs every seed once per algorithm. The default is
// cfg.Algorithm alone.
func WithAlgorithms(algs ...config.Algorithm) Option {
	return func(o *options) { o.algorithms = algs }
}

// #endregion types

// #region run
// Run validates cfg, then runs cfg.Batch.Trials trials per algorithm with
// seeds BaseSeed, BaseSeed+1, ... on at most Workers goroutines. A failed
// trial is counted, not returned as an error; only invalid configuration and
// store errors abort the batch. Results are ordered by algorithm, then seed.
func Run(ctx context.Context, cfg config.SimulationConfig, opts ...Option) ([]engine.TrialResult, Summary, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.algorithms) == 0 {
		o.algorithms = []config.Algorithm{cfg.Algorithm}
	}
	if o.log == nil {
		o.log = logging.ComponentLogger("batch")
	}

	configs := make([]config.SimulationConfig, len(o.algorithms))
	for i, a := range o.algorithms {
		c := cfg
		c.Algorithm = a
		if err := c.Validate(); err != nil {
			return nil, Summary{}, err
		}
		configs[i] = c
	}

	workers := cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := cfg.Batch.Trials
	results := make([]engine.TrialResult, n*len(configs))

	o.log.Infow("batch started",
		logging.FieldCount, len(results),
		logging.FieldWorkers, workers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ai, c := range configs {
		for i := 0; i < n; i++ {
			idx := ai*n + i
			seed := cfg.Batch.BaseSeed + uint64(i)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := engine.RunTrial(c, seed, engine.WithLogger(o.log))
				if err != nil {
					return errors.Wrapf(err, "trial %s seed %d", c.Algorithm, seed)
				}
				results[idx] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = report.NewStore(""); err != nil {
			return nil, Summary{}, err
		}
		defer store.Close()
	}
	for _, res := range results {
		if err := store.RecordTrial(res.Record()); err != nil {
			return nil, Summary{}, err
		}
	}

	sum, err := Summarize(store)
	if err != nil {
		return nil, Summary{}, err
	}
	o.log.Infow("batch finished",
		logging.FieldCount, sum.Trials,
		"failed", sum.Failed,
		"timeouts", sum.Timeouts,
	)
	return results, sum, nil
}

// Summarize reads the aggregate view of everything recorded in store.
func Summarize(store *report.Store) (Summary, error) {
	rows, err := store.SummarizeByAlgorithm()
	if err != nil {
		return Summary{}, err
	}
	failures, err := store.Failures()
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{ByAlgorithm: rows, Failures: failures}
	for _, row := range rows {
		sum.Trials += row.Trials
		sum.Failed += row.Failed
		sum.Timeouts += row.Timeouts
	}
	return sum, nil
}

// #endregion run
