package config

import (
	"math"

	"github.com/danielpatrickdp/lods-sim/internal/errors"
)

// ErrInvalidConfiguration marks every validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

func invalidf(format string, args ...interface{}) error {
	err := errors.Mark(errors.Newf(format, args...), ErrInvalidConfiguration)
	return errors.WithHint(err, "check the config file and LODS_* environment overrides")
}

type floatSetting struct {
	key string
	v   float64
}

// floats lists every real-valued setting by its config key. NaN fails every
// ordered comparison, so these are checked for finiteness first.
func (c SimulationConfig) floats() []floatSetting {
	return []floatSetting{
		{"load_factor", c.LoadFactor},
		{"rho_min", c.RhoMin},
		{"rho_max", c.RhoMax},
		{"rho_init", c.RhoInit},
		{"target_reliability", c.TargetReliability},
		{"impairment.ber", c.Impairment.BER},
		{"impairment.drift_sigma", c.Impairment.DriftSigma},
		{"impairment.erase_prob", c.Impairment.EraseProb},
		{"impairment.erase_mean_len", c.Impairment.EraseMeanLen},
		{"impairment.capture_threshold", c.Impairment.CaptureThreshold},
		{"impairment.tx_energy", c.Impairment.TxEnergy},
		{"impairment.idle_energy", c.Impairment.IdleEnergy},
		{"controller.increase_factor", c.Controller.IncreaseFactor},
		{"controller.decrease_factor", c.Controller.DecreaseFactor},
		{"controller.min_step", c.Controller.MinStep},
		{"controller.low_watermark_ratio", c.Controller.LowWatermarkRatio},
		{"baseline.load_factor", c.Baseline.LoadFactor},
	}
}

// Validate checks that the configuration is usable. It reports the first
// problem found.
func (c SimulationConfig) Validate() error {
	for _, f := range c.floats() {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalidf("%s must be a finite number, got %v", f.key, f.v)
		}
	}

	known := false
	for _, a := range Algorithms() {
		if c.Algorithm == a {
			known = true
		}
	}
	if !known {
		return invalidf("algorithm must be one of %v, got %q", Algorithms(), c.Algorithm)
	}

	// Population
	if c.TagCount <= 0 {
		return invalidf("tag_count must be > 0, got %d", c.TagCount)
	}
	if c.MissingCount < 0 || c.MissingCount > c.TagCount {
		return invalidf("missing_count must be in [0, tag_count=%d], got %d", c.TagCount, c.MissingCount)
	}

	// Framing
	if c.FrameSizeMin < 1 {
		return invalidf("frame_size_min must be >= 1, got %d", c.FrameSizeMin)
	}
	if c.FrameSizeMax < c.FrameSizeMin {
		return invalidf("frame_size_max must be >= frame_size_min=%d, got %d", c.FrameSizeMin, c.FrameSizeMax)
	}
	if c.LoadFactor <= 0 {
		return invalidf("load_factor must be > 0, got %f", c.LoadFactor)
	}
	if c.ReplyBits < 1 {
		return invalidf("reply_bits must be >= 1, got %d", c.ReplyBits)
	}
	if c.VoteThreshold < 1 || c.VoteThreshold > c.ReplyBits {
		return invalidf("vote_threshold must be in [1, reply_bits=%d], got %d", c.ReplyBits, c.VoteThreshold)
	}

	// Redundancy and decisions
	if c.RhoMin <= 0 || c.RhoMin > c.RhoMax || c.RhoMax > 1 {
		return invalidf("rho bounds must satisfy 0 < rho_min <= rho_max <= 1, got [%f, %f]", c.RhoMin, c.RhoMax)
	}
	if c.RhoInit != 0 && (c.RhoInit < c.RhoMin || c.RhoInit > c.RhoMax) {
		return invalidf("rho_init must be 0 or within [rho_min, rho_max], got %f", c.RhoInit)
	}
	if c.TargetReliability <= 0.5 || c.TargetReliability >= 1 {
		return invalidf("target_reliability must be in (0.5, 1), got %f", c.TargetReliability)
	}
	if c.MinVotes < 1 {
		return invalidf("min_votes must be >= 1, got %d", c.MinVotes)
	}
	if c.MaxRounds < 1 {
		return invalidf("max_rounds must be >= 1, got %d", c.MaxRounds)
	}
	if c.MaxSplitDepth < 0 {
		return invalidf("max_split_depth must be >= 0, got %d", c.MaxSplitDepth)
	}
	if c.ForcedResolutionBudget < 0 {
		return invalidf("forced_resolution_budget must be >= 0, got %d", c.ForcedResolutionBudget)
	}

	// Channel
	imp := c.Impairment
	if imp.BER < 0 || imp.BER >= 0.5 {
		return invalidf("impairment.ber must be in [0, 0.5), got %f", imp.BER)
	}
	if imp.DriftSigma < 0 {
		return invalidf("impairment.drift_sigma must be >= 0, got %f", imp.DriftSigma)
	}
	if imp.EraseProb < 0 || imp.EraseProb >= 1 {
		return invalidf("impairment.erase_prob must be in [0, 1), got %f", imp.EraseProb)
	}
	if imp.EraseMeanLen < 0 {
		return invalidf("impairment.erase_mean_len must be >= 0, got %f", imp.EraseMeanLen)
	}
	if imp.CaptureThreshold < 0 {
		return invalidf("impairment.capture_threshold must be >= 0, got %f", imp.CaptureThreshold)
	}
	if imp.TxEnergy < 0 || imp.IdleEnergy < 0 {
		return invalidf("impairment energies must be >= 0, got tx=%f idle=%f", imp.TxEnergy, imp.IdleEnergy)
	}

	// Controller
	ctl := c.Controller
	if ctl.Window < 1 {
		return invalidf("controller.window must be >= 1, got %d", ctl.Window)
	}
	if ctl.IncreaseFactor <= 1 {
		return invalidf("controller.increase_factor must be > 1, got %f", ctl.IncreaseFactor)
	}
	if ctl.DecreaseFactor <= 0 || ctl.DecreaseFactor >= 1 {
		return invalidf("controller.decrease_factor must be in (0, 1), got %f", ctl.DecreaseFactor)
	}
	if ctl.MinStep < 0 {
		return invalidf("controller.min_step must be >= 0, got %f", ctl.MinStep)
	}
	if ctl.LowWatermarkRatio < 0 || ctl.LowWatermarkRatio >= 1 {
		return invalidf("controller.low_watermark_ratio must be in [0, 1), got %f", ctl.LowWatermarkRatio)
	}
	if ctl.Hysteresis < 1 {
		return invalidf("controller.hysteresis must be >= 1, got %d", ctl.Hysteresis)
	}

	// Baseline
	if c.Baseline.LoadFactor <= 0 {
		return invalidf("baseline.load_factor must be > 0, got %f", c.Baseline.LoadFactor)
	}
	if c.Baseline.StableRounds < 1 {
		return invalidf("baseline.stable_rounds must be >= 1, got %d", c.Baseline.StableRounds)
	}

	// Batch
	if c.Batch.Trials < 0 {
		return invalidf("batch.trials must be >= 0, got %d", c.Batch.Trials)
	}
	if c.Batch.Workers < 0 {
		return invalidf("batch.workers must be >= 0, got %d", c.Batch.Workers)
	}

	return nil
}
