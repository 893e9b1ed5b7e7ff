package gate

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// #region gate
// Gate decides whether a tag's accumulated evidence is strong enough to
// finalize it.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks the vote floor first, then the two-sided confidence
// threshold: confidence >= target confirms presence, confidence <= 1-target
// confirms absence.
func (g *Gate) Evaluate(rec state.VoteRecord) GateDecision {
	if rec.Finalized() {
		return GateDecision{
			Action:   "hold",
			Decision: rec.Decision,
			Reason:   "already finalized",
			Hold:     HoldFinalized,
		}
	}

	hi := g.config.TargetReliability
	lo := 1 - hi
	margin := math.Max(rec.Confidence-hi, lo-rec.Confidence)

	// --- Vote floor ---
	if rec.Votes < g.config.MinVotes {
		return GateDecision{
			Action: "hold",
			Reason: fmt.Sprintf("votes %d below minimum %d", rec.Votes, g.config.MinVotes),
			Hold:   HoldInsufficientVotes,
			Margin: margin,
		}
	}

	// --- Confidence thresholds ---
	switch {
	case rec.Confidence >= hi:
		return GateDecision{
			Action:   "finalize",
			Decision: state.PresentConfirmed,
			Reason:   fmt.Sprintf("confidence %.6f >= %.4f", rec.Confidence, hi),
			Margin:   margin,
		}
	case rec.Confidence <= lo:
		return GateDecision{
			Action:   "finalize",
			Decision: state.MissingConfirmed,
			Reason:   fmt.Sprintf("confidence %.6f <= %.4f", rec.Confidence, lo),
			Margin:   margin,
		}
	default:
		return GateDecision{
			Action: "hold",
			Reason: fmt.Sprintf("confidence %.6f inside (%.4f, %.4f)", rec.Confidence, lo, hi),
			Hold:   HoldUncertain,
			Margin: margin,
		}
	}
}

// Leaning returns the decision the evidence currently favours, without the
// vote floor or thresholds.
func Leaning(rec state.VoteRecord) state.Decision {
	switch {
	case rec.Confidence > 0.5:
		return state.PresentConfirmed
	case rec.Confidence < 0.5:
		return state.MissingConfirmed
	default:
		return state.Undetermined
	}
}

// #endregion gate
