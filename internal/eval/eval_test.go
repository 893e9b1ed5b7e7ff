package eval

import (
	"math"
	"strings"
	"testing"

	"github.com/danielpatrickdp/lods-sim/internal/state"
)

func makeTruth(present, missing int) GroundTruth {
	truth := make(GroundTruth, present+missing)
	for i := 0; i < present; i++ {
		truth[uint64(i)] = true
	}
	for i := present; i < present+missing; i++ {
		truth[uint64(i)] = false
	}
	return truth
}

func perfectDecisions(truth GroundTruth) []state.TagDecision {
	var out []state.TagDecision
	for tag, present := range truth {
		d := state.MissingConfirmed
		if present {
			d = state.PresentConfirmed
		}
		out = append(out, state.TagDecision{TagID: tag, Decision: d})
	}
	return out
}

func TestEvalPassesOnPerfectDecisions(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	truth := makeTruth(95, 5)

	result := h.Run(perfectDecisions(truth), truth)

	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if result.Recall != 1 || result.FalsePositiveRate != 0 {
		t.Fatalf("expected recall 1 fpr 0, got %f %f", result.Recall, result.FalsePositiveRate)
	}
	if len(result.Metrics) != 5 {
		t.Fatalf("expected 5 metrics, got %d", len(result.Metrics))
	}
	if len(result.Failures()) != 0 {
		t.Fatalf("expected no failed metrics, got %v", result.Failures())
	}
}

func TestEvalFailsOnLowRecall(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	truth := makeTruth(90, 10)
	decisions := perfectDecisions(truth)
	// leave two missing tags undetermined
	n := 0
	for i := range decisions {
		if decisions[i].Decision == state.MissingConfirmed && n < 2 {
			decisions[i].Decision = state.Undetermined
			n++
		}
	}

	result := h.Run(decisions, truth)

	if result.Passed {
		t.Fatal("expected fail on low recall")
	}
	if math.Abs(result.Recall-0.8) > 1e-12 {
		t.Fatalf("expected recall 0.8, got %f", result.Recall)
	}
}

func TestEvalFailsOnFalseMissing(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	truth := makeTruth(50, 0)
	decisions := perfectDecisions(truth)
	decisions[0].Decision = state.MissingConfirmed
	decisions[1].Decision = state.MissingConfirmed

	result := h.Run(decisions, truth)

	if result.Passed {
		t.Fatal("expected fail on false positives")
	}
	if math.Abs(result.FalsePositiveRate-0.04) > 1e-12 {
		t.Fatalf("expected fpr 0.04, got %f", result.FalsePositiveRate)
	}
}

func TestScoreTreatsMissingDecisionsAsUndetermined(t *testing.T) {
	truth := makeTruth(3, 2)
	recall, fpr := Score(nil, truth)
	if recall != 0 || fpr != 0 {
		t.Fatalf("expected recall 0 fpr 0, got %f %f", recall, fpr)
	}

	recall, _ = Score(nil, makeTruth(3, 0))
	if recall != 1 {
		t.Fatalf("expected recall 1 with nothing missing, got %f", recall)
	}
}

func TestEvalReasonCountsFailures(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	truth := makeTruth(10, 10)
	var decisions []state.TagDecision
	for tag := range truth {
		decisions = append(decisions, state.TagDecision{TagID: tag, Decision: state.MissingConfirmed})
	}
	truth[99] = false // never decided

	result := h.Run(decisions, truth)

	if result.Passed {
		t.Fatal("expected fail")
	}
	if !strings.HasPrefix(result.Reason, "eval failed: 2 checks") {
		t.Fatalf("expected two failed checks, got %q", result.Reason)
	}
}

func TestEvalCountsMissingTagsConfirmedPresent(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	truth := makeTruth(6, 4)
	decisions := perfectDecisions(truth)
	for i := range decisions {
		if !truth[decisions[i].TagID] {
			decisions[i].Decision = state.PresentConfirmed
			break
		}
	}

	result := h.Run(decisions, truth)

	m, ok := result.Metric("false_present_rate")
	if !ok {
		t.Fatal("expected false_present_rate metric")
	}
	if math.Abs(m.Value-0.25) > 1e-12 {
		t.Fatalf("expected false present rate 0.25, got %f", m.Value)
	}
	if math.Abs(result.Recall-0.75) > 1e-12 {
		t.Fatalf("expected recall 0.75, got %f", result.Recall)
	}
}

func TestCheckAppliesThresholdsToRates(t *testing.T) {
	h := NewEvalHarness(EvalConfig{MinRecall: 0.99, MaxFalsePositiveRate: 0.01})

	ok := h.Check(1, 0)
	if !ok.Passed || len(ok.Metrics) != 2 {
		t.Fatalf("expected pass with 2 metrics, got %+v", ok)
	}

	bad := h.Check(0.9, 0.05)
	if bad.Passed {
		t.Fatal("expected fail")
	}
	failed := bad.Failures()
	if len(failed) != 2 || failed[0].Name != "recall" || failed[1].Name != "false_positive_rate" {
		t.Fatalf("expected recall and false_positive_rate to fail, got %v", failed)
	}
	if _, found := bad.Metric("present_recall"); found {
		t.Fatal("Check should not report informational metrics")
	}
}
