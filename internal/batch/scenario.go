package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/eval"
)

// #region scenario-types

// Scenario is a named batch configuration with expected outcomes, stored as
// YAML. Fields omitted from the config block keep their defaults.
type Scenario struct {
	Description string                  `yaml:"description" json:"description"`
	Config      config.SimulationConfig `yaml:"config" json:"config"`
	Algorithms  []config.Algorithm      `yaml:"algorithms" json:"algorithms"`
	Expect      []Expectation           `yaml:"expect" json:"expect"`
}

// Expectation bounds the aggregate outcome of one algorithm.
type Expectation struct {
	Algorithm            config.Algorithm `yaml:"algorithm" json:"algorithm"`
	MinRecall            float64          `yaml:"min_recall" json:"min_recall"`
	MaxFalsePositiveRate float64          `yaml:"max_false_positive_rate" json:"max_false_positive_rate"`
	MaxFailed            int              `yaml:"max_failed" json:"max_failed"`
}

// #endregion scenario-types

// #region scenario-loader

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario over the default configuration.
func ParseScenario(data []byte) (*Scenario, error) {
	s := Scenario{Config: config.Default()}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if len(s.Algorithms) == 0 {
		s.Algorithms = []config.Algorithm{s.Config.Algorithm}
	}
	for _, a := range s.Algorithms {
		c := s.Config
		c.Algorithm = a
		if err := c.Validate(); err != nil {
			return nil, errors.Wrapf(err, "scenario %q", s.Description)
		}
	}
	return &s, nil
}

// Options returns the batch options the scenario implies.
func (s *Scenario) Options() []Option {
	return []Option{WithAlgorithms(s.Algorithms...)}
}

// EvalConfig returns the thresholds of e. A zero MaxFalsePositiveRate leaves
// the rate unbounded.
func (e Expectation) EvalConfig() eval.EvalConfig {
	c := eval.EvalConfig{MinRecall: e.MinRecall, MaxFalsePositiveRate: e.MaxFalsePositiveRate}
	if c.MaxFalsePositiveRate == 0 {
		c.MaxFalsePositiveRate = 1
	}
	return c
}

// Check compares a batch summary against the expectations and returns one
// line per violation. Mean recall and false-positive rate go through the same
// eval harness that judges single trials.
func (s *Scenario) Check(sum Summary) []string {
	var violations []string
	for _, e := range s.Expect {
		row, ok := sum.Algorithm(e.Algorithm)
		if !ok {
			violations = append(violations, fmt.Sprintf("%s: no trials", e.Algorithm))
			continue
		}
		result := eval.NewEvalHarness(e.EvalConfig()).Check(row.MeanRecall, row.MeanFPR)
		for _, m := range result.Failures() {
			violations = append(violations, fmt.Sprintf("%s: mean %s %.4f out of bounds (%s)", e.Algorithm, m.Name, m.Value, result.Reason))
		}
		if row.Failed > e.MaxFailed {
			violations = append(violations, fmt.Sprintf("%s: %d failed trials > %d", e.Algorithm, row.Failed, e.MaxFailed))
		}
	}
	return violations
}

// #endregion scenario-loader
