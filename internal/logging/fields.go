package logging

// Standard field names for structured logging. Use these instead of raw
// strings so trial logs can be filtered consistently.
const (
	// Identity
	FieldTrialID   = "trial_id"
	FieldSeed      = "seed"
	FieldAlgorithm = "algorithm"
	FieldComponent = "component"

	// Round progress
	FieldRound        = "round"
	FieldPhase        = "phase"
	FieldFrameSize    = "frame_size"
	FieldSlots        = "slots"
	FieldRho          = "rho"
	FieldNoise        = "noise"
	FieldFinalized    = "finalized"
	FieldUndetermined = "undetermined"

	// Channel
	FieldCollisions = "collisions"
	FieldForced     = "forced"
	FieldErasures   = "erasures"
	FieldEnergy     = "energy"

	// Outcome
	FieldRecall            = "recall"
	FieldFalsePositiveRate = "false_positive_rate"
	FieldError             = "error"
	FieldCount             = "count"
	FieldWorkers           = "workers"
)
