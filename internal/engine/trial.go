// Package engine runs missing-tag identification trials: it generates the tag
// population, wires the simulated air interface to an algorithm, drives the
// algorithm round by round and scores its decisions against ground truth.
package engine

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/lods-sim/internal/alloc"
	"github.com/danielpatrickdp/lods-sim/internal/channel"
	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/eval"
	"github.com/danielpatrickdp/lods-sim/internal/logging"
	"github.com/danielpatrickdp/lods-sim/internal/protocol"
	"github.com/danielpatrickdp/lods-sim/internal/report"
	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// trialNamespace scopes trial IDs so the same algorithm and seed always map
// to the same ID.
var trialNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("lods-sim/trial"))

// #region result
// TrialResult is the full record of one trial.
type TrialResult struct {
	TrialID           string                  `json:"trial_id" yaml:"trial_id"`
	Algorithm         config.Algorithm        `json:"algorithm" yaml:"algorithm"`
	Seed              uint64                  `json:"seed" yaml:"seed"`
	Decisions         []state.TagDecision     `json:"decisions" yaml:"decisions"`
	Rounds            []state.RoundStatistics `json:"rounds" yaml:"rounds"`
	Recall            float64                 `json:"recall" yaml:"recall"`
	FalsePositiveRate float64                 `json:"false_positive_rate" yaml:"false_positive_rate"`
	Timeout           bool                    `json:"timeout" yaml:"timeout"`
	Failure           string                  `json:"failure,omitempty" yaml:"failure,omitempty"`
	Eval              eval.EvalResult         `json:"eval" yaml:"eval"`

	Err error `json:"-" yaml:"-"`
}

// RoundRow is one flat statistics row for downstream tooling.
type RoundRow struct {
	TrialID               string           `json:"trial_id" yaml:"trial_id"`
	Algorithm             config.Algorithm `json:"algorithm" yaml:"algorithm"`
	Seed                  uint64           `json:"seed" yaml:"seed"`
	state.RoundStatistics `yaml:",inline"`
}

// Rows flattens the round statistics.
func (r TrialResult) Rows() []RoundRow {
	rows := make([]RoundRow, len(r.Rounds))
	for i, st := range r.Rounds {
		rows[i] = RoundRow{TrialID: r.TrialID, Algorithm: r.Algorithm, Seed: r.Seed, RoundStatistics: st}
	}
	return rows
}

// Failed reports whether the trial stopped on a runtime error.
func (r TrialResult) Failed() bool {
	return r.Failure != ""
}

// Counts tallies the final decisions.
func (r TrialResult) Counts() map[state.Decision]int {
	out := make(map[state.Decision]int, 3)
	for _, d := range r.Decisions {
		out[d.Decision]++
	}
	return out
}

// Record converts the result for the report store.
func (r TrialResult) Record() report.TrialRecord {
	return report.TrialRecord{
		TrialID:           r.TrialID,
		Algorithm:         string(r.Algorithm),
		Seed:              r.Seed,
		Recall:            r.Recall,
		FalsePositiveRate: r.FalsePositiveRate,
		Timeout:           r.Timeout,
		Failure:           r.Failure,
		Rounds:            r.Rounds,
		Decisions:         r.Decisions,
	}
}

// TrialID derives the deterministic ID of a trial.
func TrialID(a config.Algorithm, seed uint64) string {
	return uuid.NewSHA1(trialNamespace, []byte(fmt.Sprintf("%s/%d", a, seed))).String()
}

// #endregion result

// #region options
type trialOptions struct {
	log  *zap.SugaredLogger
	eval eval.EvalConfig
}

// Option customises RunTrial.
type Option func(*trialOptions)

// WithLogger sets the parent logger for the trial.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *trialOptions) {
		o.log = log
	}
}

// WithEvalConfig sets the thresholds the trial is judged against. The default
// is eval.DefaultEvalConfig.
func WithEvalConfig(c eval.EvalConfig) Option {
	return func(o *trialOptions) {
		o.eval = c
	}
}

// #endregion options

// #region run
// RunTrial runs one trial of cfg.Algorithm with the given seed. The returned
// error is non-nil only for invalid configuration; runtime failures are
// reported in TrialResult.Failure.
func RunTrial(cfg config.SimulationConfig, seed uint64, opts ...Option) (TrialResult, error) {
	o := trialOptions{eval: eval.DefaultEvalConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return TrialResult{}, err
	}
	algo, err := NewAlgorithm(cfg.Algorithm)
	if err != nil {
		return TrialResult{}, err
	}

	res := TrialResult{
		TrialID:   TrialID(cfg.Algorithm, seed),
		Algorithm: cfg.Algorithm,
		Seed:      seed,
	}
	parent := o.log
	if parent == nil {
		parent = logging.ComponentLogger("engine")
	}
	log := logging.ChildLogger(parent,
		logging.FieldTrialID, res.TrialID,
		logging.FieldAlgorithm, string(cfg.Algorithm),
		logging.FieldSeed, seed,
	)

	rng := rand.New(rand.NewPCG(seed, alloc.Derive(seed, "rng")))
	pop := NewPopulation(cfg.TagCount, cfg.MissingCount, rng)
	model := channel.NewModel(cfg.Impairment)
	air := NewAir(model, pop, rng)
	truth := pop.Truth()

	if err := algo.Initialize(protocol.Setup{
		Config: cfg,
		Tags:   append([]uint64(nil), pop.Tags...),
		Seed:   seed,
		Model:  model,
		Logger: log,
	}); err != nil {
		return TrialResult{}, err
	}

	log.Infow("trial started",
		"tags", cfg.TagCount,
		"missing", cfg.MissingCount,
		"ideal_channel", cfg.Impairment.Ideal(),
	)

	for !algo.Done() {
		if len(res.Rounds) >= cfg.MaxRounds {
			break
		}
		st, err := algo.RunRound(air)
		if err != nil {
			res.Err = err
			res.Failure = err.Error()
			log.Warnw("trial failed",
				logging.FieldRound, len(res.Rounds)+1,
				logging.FieldError, err,
			)
			break
		}
		st.Recall, st.FalsePositiveRate = eval.Score(algo.Decisions(), truth)
		res.Rounds = append(res.Rounds, st)
	}

	res.Decisions = algo.Decisions()
	sort.Slice(res.Decisions, func(i, j int) bool {
		return res.Decisions[i].TagID < res.Decisions[j].TagID
	})
	res.Eval = eval.NewEvalHarness(o.eval).Run(res.Decisions, truth)
	res.Recall, res.FalsePositiveRate = res.Eval.Recall, res.Eval.FalsePositiveRate
	if !res.Failed() {
		res.Timeout = res.Counts()[state.Undetermined] > 0
	}

	log.Infow("trial finished",
		"rounds", len(res.Rounds),
		logging.FieldRecall, res.Recall,
		logging.FieldFalsePositiveRate, res.FalsePositiveRate,
		logging.FieldUndetermined, res.Counts()[state.Undetermined],
		"timeout", res.Timeout,
		"passed", res.Eval.Passed,
	)
	if !res.Failed() && !res.Eval.Passed {
		log.Debugw("trial below thresholds", "reason", res.Eval.Reason)
	}
	return res, nil
}

// #endregion run
