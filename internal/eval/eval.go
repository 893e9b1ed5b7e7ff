package eval

import (
	"fmt"

	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// #region eval-harness
// EvalHarness scores decisions against ground truth.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run scores decisions and checks them against the configured thresholds.
// Tags without a decision count as undetermined.
func (h *EvalHarness) Run(decisions []state.TagDecision, truth GroundTruth) EvalResult {
	c := count(decisions, truth)
	result := h.Check(c.rates())

	// Informational, never fail a trial
	total := c.present + c.missing
	undetermined := 0.0
	presentRecall := 1.0
	falsePresent := 0.0
	if total > 0 {
		undetermined = float64(c.undetermined) / float64(total)
	}
	if c.present > 0 {
		presentRecall = float64(c.presentConfirmed) / float64(c.present)
	}
	if c.missing > 0 {
		falsePresent = float64(c.falsePresent) / float64(c.missing)
	}
	result.Metrics = append(result.Metrics,
		EvalMetric{Name: "undetermined_fraction", Value: undetermined, Pass: true},
		EvalMetric{Name: "present_recall", Value: presentRecall, Pass: true},
		EvalMetric{Name: "false_present_rate", Value: falsePresent, Pass: true},
	)
	return result
}

// Check applies the thresholds to rates that were already computed, e.g.
// means over a batch.
func (h *EvalHarness) Check(recall, fpr float64) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Recall of missing tags
	recallPass := recall >= h.config.MinRecall
	metrics = append(metrics, EvalMetric{Name: "recall", Value: recall, Pass: recallPass})
	if !recallPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("recall %.4f below %.4f", recall, h.config.MinRecall))
	}

	// 2. Present tags reported missing
	fprPass := fpr <= h.config.MaxFalsePositiveRate
	metrics = append(metrics, EvalMetric{Name: "false_positive_rate", Value: fpr, Pass: fprPass})
	if !fprPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("false positive rate %.4f exceeds %.4f", fpr, h.config.MaxFalsePositiveRate))
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:            passed,
		Recall:            recall,
		FalsePositiveRate: fpr,
		Metrics:           metrics,
		Reason:            reason,
	}
}

// Failures returns the threshold checks that did not pass.
func (r EvalResult) Failures() []EvalMetric {
	var out []EvalMetric
	for _, m := range r.Metrics {
		if !m.Pass {
			out = append(out, m)
		}
	}
	return out
}

// Metric looks up a metric by name.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// Score returns recall over missing tags and the false-positive rate over
// present tags. Recall is 1 when nothing is missing; the rate is 0 when
// nothing is present.
func Score(decisions []state.TagDecision, truth GroundTruth) (recall, falsePositiveRate float64) {
	return count(decisions, truth).rates()
}

// #endregion eval-harness

// #region helpers
type tally struct {
	present, missing int
	missingConfirmed int // missing tags confirmed missing
	falseMissing     int // present tags confirmed missing
	presentConfirmed int // present tags confirmed present
	falsePresent     int // missing tags confirmed present
	undetermined     int
}

func count(decisions []state.TagDecision, truth GroundTruth) tally {
	var c tally
	decided := make(map[uint64]state.Decision, len(decisions))
	for _, d := range decisions {
		decided[d.TagID] = d.Decision
	}
	for tag, present := range truth {
		d, ok := decided[tag]
		if !ok {
			d = state.Undetermined
		}
		if present {
			c.present++
		} else {
			c.missing++
		}
		switch {
		case d == state.MissingConfirmed && !present:
			c.missingConfirmed++
		case d == state.MissingConfirmed && present:
			c.falseMissing++
		case d == state.PresentConfirmed && present:
			c.presentConfirmed++
		case d == state.PresentConfirmed:
			c.falsePresent++
		case !d.Decisive():
			c.undetermined++
		}
	}
	return c
}

func (c tally) rates() (recall, fpr float64) {
	recall = 1
	if c.missing > 0 {
		recall = float64(c.missingConfirmed) / float64(c.missing)
	}
	if c.present > 0 {
		fpr = float64(c.falseMissing) / float64(c.present)
	}
	return recall, fpr
}

// #endregion helpers
