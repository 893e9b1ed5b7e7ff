package batch

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/report"
	"github.com/danielpatrickdp/lods-sim/internal/state"
)

func batchConfig(trials, workers int) config.SimulationConfig {
	cfg := config.Default()
	cfg.TagCount = 100
	cfg.MissingCount = 5
	cfg.Batch.Trials = trials
	cfg.Batch.Workers = workers
	cfg.Batch.BaseSeed = 10
	return cfg
}

// #region harness-tests

func TestRunOrdersResultsBySeed(t *testing.T) {
	results, sum, err := Run(context.Background(), batchConfig(6, 3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Seed != uint64(10+i) {
			t.Errorf("result %d: expected seed %d, got %d", i, 10+i, res.Seed)
		}
		if !res.Eval.Passed {
			t.Errorf("result %d: expected trial to pass eval, got %s", i, res.Eval.Reason)
		}
	}
	if sum.Trials != 6 || sum.Failed != 0 {
		t.Fatalf("expected 6 trials 0 failed, got %d %d", sum.Trials, sum.Failed)
	}
	row, ok := sum.Algorithm(config.AlgorithmLodsMTI)
	if !ok {
		t.Fatal("expected a lods-mti summary row")
	}
	if row.MeanRecall != 1 {
		t.Fatalf("expected mean recall 1 on a perfect channel, got %f", row.MeanRecall)
	}
}

func TestRunMatchesSequential(t *testing.T) {
	parallel, _, err := Run(context.Background(), batchConfig(4, 4))
	if err != nil {
		t.Fatalf("parallel Run: %v", err)
	}
	sequential, _, err := Run(context.Background(), batchConfig(4, 1))
	if err != nil {
		t.Fatalf("sequential Run: %v", err)
	}
	for i := range parallel {
		if parallel[i].TrialID != sequential[i].TrialID || parallel[i].Recall != sequential[i].Recall {
			t.Errorf("trial %d differs between worker counts", i)
		}
	}
}

func TestRunValidatesBeforeStarting(t *testing.T) {
	cfg := batchConfig(3, 1)
	cfg.RhoMin = 0

	_, _, err := Run(context.Background(), cfg)
	if !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestRunCountsFailuresWithoutAborting(t *testing.T) {
	cfg := batchConfig(3, 2)
	cfg.FrameSizeMin = 4
	cfg.FrameSizeMax = 4
	cfg.MaxSplitDepth = 1
	cfg.ForcedResolutionBudget = 1

	results, sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 3 || len(sum.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %d (%d listed)", sum.Failed, len(sum.Failures))
	}
	if sum.Failures[0].Seed != 10 {
		t.Errorf("expected first failure seed 10, got %d", sum.Failures[0].Seed)
	}
	for _, res := range results {
		if !res.Failed() {
			t.Errorf("seed %d: expected failure", res.Seed)
		}
	}
}

func TestRunRecordsIntoSharedStore(t *testing.T) {
	store, err := report.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	results, sum, err := Run(context.Background(), batchConfig(2, 2),
		WithStore(store),
		WithAlgorithms(config.AlgorithmLodsMTI, config.AlgorithmCRMTI),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 4 || len(sum.ByAlgorithm) != 2 {
		t.Fatalf("expected 4 results over 2 algorithms, got %d over %d", len(results), len(sum.ByAlgorithm))
	}
	if results[2].Algorithm != config.AlgorithmCRMTI {
		t.Errorf("expected cr-mti results after lods-mti, got %s", results[2].Algorithm)
	}

	counts, err := store.DecisionCounts(results[0].TrialID)
	if err != nil {
		t.Fatalf("DecisionCounts: %v", err)
	}
	if counts[state.MissingConfirmed] != 5 {
		t.Errorf("expected 5 missing decisions stored, got %d", counts[state.MissingConfirmed])
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Run(ctx, batchConfig(4, 1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// #endregion harness-tests

// #region scenario-tests

func TestScenario_NoisySmall(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "noisy_small.yaml"))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if s.Config.TagCount != 200 || s.Config.Impairment.BER != 0.01 {
		t.Fatalf("scenario overrides not applied: %+v", s.Config)
	}
	if s.Config.Impairment.TxEnergy != config.Default().Impairment.TxEnergy {
		t.Fatalf("expected default tx_energy to survive, got %f", s.Config.Impairment.TxEnergy)
	}

	_, sum, err := Run(context.Background(), s.Config, s.Options()...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Trials != 8 {
		t.Fatalf("expected 8 trials, got %d", sum.Trials)
	}
	for _, v := range s.Check(sum) {
		t.Errorf("expectation failed: %s", v)
	}
}

func TestScenarioCheckReportsViolations(t *testing.T) {
	s := &Scenario{Expect: []Expectation{
		{Algorithm: config.AlgorithmLodsMTI, MinRecall: 0.99, MaxFalsePositiveRate: 0.01},
		{Algorithm: config.AlgorithmCRMTI, MinRecall: 0.5},
	}}
	sum := Summary{ByAlgorithm: []report.AlgorithmSummary{
		{Algorithm: "lods-mti", Trials: 2, Failed: 1, MeanRecall: 0.9, MeanFPR: 0.05},
	}}

	got := s.Check(sum)
	if len(got) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(got), got)
	}
	want := []string{"mean recall", "mean false_positive_rate", "1 failed trials", "cr-mti: no trials"}
	for i, w := range want {
		if !strings.Contains(got[i], w) {
			t.Fatalf("violation %d: expected %q in %q", i, w, got[i])
		}
	}
}

func TestScenarioCheckUnboundedFalsePositiveRate(t *testing.T) {
	s := &Scenario{Expect: []Expectation{{Algorithm: config.AlgorithmCRMTI, MinRecall: 0.5}}}
	sum := Summary{ByAlgorithm: []report.AlgorithmSummary{
		{Algorithm: "cr-mti", Trials: 3, MeanRecall: 0.8, MeanFPR: 0.3},
	}}

	if got := s.Check(sum); len(got) != 0 {
		t.Fatalf("expected no violations, got %v", got)
	}
	if c := s.Expect[0].EvalConfig(); c.MaxFalsePositiveRate != 1 {
		t.Fatalf("expected unbounded rate, got %f", c.MaxFalsePositiveRate)
	}
}

func TestParseScenarioRejectsInvalidConfig(t *testing.T) {
	_, err := ParseScenario([]byte("config:\n  tag_count: 0\n"))
	if !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

// #endregion scenario-tests
