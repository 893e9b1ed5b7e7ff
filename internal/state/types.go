// Package state holds the records a trial produces: per-tag vote records,
// final decisions and per-round statistics.
package state

// #region decision
// Decision is the final classification of a registered tag. Once a tag is
// finalized its decision never changes.
type Decision string

const (
	PresentConfirmed Decision = "present_confirmed"
	MissingConfirmed Decision = "missing_confirmed"
	Undetermined     Decision = "undetermined"
)

// Decisive reports whether d confirms presence or absence.
func (d Decision) Decisive() bool {
	return d == PresentConfirmed || d == MissingConfirmed
}

// #endregion decision

// #region vote-record
// VoteRecord accumulates the evidence gathered for one tag.
type VoteRecord struct {
	TagID          uint64   `json:"tag_id" yaml:"tag_id"`
	Positive       float64  `json:"positive" yaml:"positive"`             // weighted present evidence
	Negative       float64  `json:"negative" yaml:"negative"`             // weighted absent evidence
	Votes          int      `json:"votes" yaml:"votes"`                   // unambiguous observations
	Ambiguous      int      `json:"ambiguous" yaml:"ambiguous"`           // shared-slot observations, no LLR evidence
	Disagreements  int      `json:"disagreements" yaml:"disagreements"`   // rounds whose two observations conflicted
	LLR            float64  `json:"llr" yaml:"llr"`                       // log P(obs|present) - log P(obs|absent)
	Confidence     float64  `json:"confidence" yaml:"confidence"`         // logistic(LLR)
	Decision       Decision `json:"decision,omitempty" yaml:"decision,omitempty"`
	FinalizedRound int      `json:"finalized_round,omitempty" yaml:"finalized_round,omitempty"`
}

// Finalized reports whether the record carries a final decision.
func (v VoteRecord) Finalized() bool {
	return v.Decision != ""
}

// #endregion vote-record

// #region tag-decision
// TagDecision is the externally reported result for one tag.
type TagDecision struct {
	TagID      uint64   `json:"tag_id" yaml:"tag_id"`
	Decision   Decision `json:"decision" yaml:"decision"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Votes      int      `json:"votes" yaml:"votes"`
	Round      int      `json:"round" yaml:"round"` // 0 when undetermined
}

// #endregion tag-decision

// #region round-statistics
// RoundStatistics summarizes one protocol round. Energy and AirtimeUs are
// cumulative over the trial; Recall and FalsePositiveRate are filled in by the
// engine from ground truth after the round.
type RoundStatistics struct {
	Round             int     `json:"round" yaml:"round"`
	FrameSize         int     `json:"frame_size" yaml:"frame_size"`
	TotalSlots        int     `json:"total_slots" yaml:"total_slots"`
	Rho               float64 `json:"rho" yaml:"rho"`
	VerifyTags        int     `json:"verify_tags" yaml:"verify_tags"`
	Collisions        int     `json:"collisions" yaml:"collisions"`
	ExpectedCollision float64 `json:"expected_collision_rate" yaml:"expected_collision_rate"` // birthday estimate for the primary frame
	PhantomCollisions int     `json:"phantom_collisions" yaml:"phantom_collisions"`
	Erasures          int     `json:"erasures" yaml:"erasures"`
	Forced            int     `json:"forced" yaml:"forced"`
	Splits            int     `json:"splits" yaml:"splits"`
	Throughput        float64 `json:"throughput" yaml:"throughput"` // resolved tags per slot
	Energy            float64 `json:"energy" yaml:"energy"`
	AirtimeUs         float64 `json:"airtime_us" yaml:"airtime_us"`
	Recall            float64 `json:"recall" yaml:"recall"`
	FalsePositiveRate float64 `json:"false_positive_rate" yaml:"false_positive_rate"`
	Finalized         int     `json:"finalized" yaml:"finalized"`
	Undetermined      int     `json:"undetermined" yaml:"undetermined"`
	Noise             float64 `json:"noise" yaml:"noise"`
}

// #endregion round-statistics
