package eval

// #region eval-config
// EvalConfig holds the pass thresholds for a finished trial.
type EvalConfig struct {
	MinRecall            float64 // share of missing tags confirmed missing
	MaxFalsePositiveRate float64 // share of present tags wrongly confirmed missing
}

// DefaultEvalConfig returns the acceptance thresholds of the reference
// scenario.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinRecall:            0.95,
		MaxFalsePositiveRate: 0.02,
	}
}

// #endregion eval-config

// #region ground-truth
// GroundTruth maps every registered tag to whether it is physically present.
// Only the oracle and the simulated medium may hold one.
type GroundTruth map[uint64]bool

// #endregion ground-truth

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
	Pass  bool    `json:"pass" yaml:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of the oracle scoring.
type EvalResult struct {
	Passed            bool         `json:"passed" yaml:"passed"`
	Recall            float64      `json:"recall" yaml:"recall"`
	FalsePositiveRate float64      `json:"false_positive_rate" yaml:"false_positive_rate"`
	Metrics           []EvalMetric `json:"metrics" yaml:"metrics"`
	Reason            string       `json:"reason" yaml:"reason"`
}

// #endregion eval-result
