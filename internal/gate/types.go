package gate

import "github.com/danielpatrickdp/lods-sim/internal/state"

// #region hold-reason
// HoldReason enumerates why a tag stays undecided this round.
type HoldReason string

const (
	HoldNone              HoldReason = ""
	HoldFinalized         HoldReason = "already_finalized"
	HoldInsufficientVotes HoldReason = "insufficient_votes"
	HoldUncertain         HoldReason = "uncertain"
)

// #endregion hold-reason

// #region gate-config
// GateConfig holds the finalization thresholds.
type GateConfig struct {
	TargetReliability float64 // confidence needed to confirm presence; 1-target confirms absence
	MinVotes          int     // unambiguous observations required before either decision
}

// DefaultGateConfig returns the default thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		TargetReliability: 0.95,
		MinVotes:          2,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action   string // "finalize" | "hold"
	Decision state.Decision
	Reason   string
	Hold     HoldReason
	Margin   float64 // distance of the confidence from the nearer threshold, negative while holding
}

// #endregion gate-decision
