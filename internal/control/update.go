package control

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/lods-sim/internal/signals"
)

// #region initial
// Initial returns the starting state. rho is clamped into the configured
// bounds; callers pass RhoMax for a pessimistic start.
func Initial(cfg Config, rho float64) State {
	return State{
		Rho:    clamp(rho, cfg.RhoMin, cfg.RhoMax),
		Target: cfg.TargetReliability,
	}
}

// #endregion initial

// #region update-function
// Update is a pure function that computes the next controller state from the
// current state and one round of channel signals.
//
// The noise estimate is an EWMA with alpha = 2/(Window+1). Above the high
// watermark 1-target, ρ grows to max(ρ·IncreaseFactor, ρ+MinStep); below
// LowWatermarkRatio times that, ρ shrinks to ρ·DecreaseFactor; in between it
// holds. A move needs Hysteresis consecutive rounds on the same side. ρ is
// clamped to [RhoMin, RhoMax] on every path.
func Update(old State, sig signals.ChannelSignals, cfg Config) Result {
	next := old
	next.Round = old.Round + 1
	next.Target = cfg.TargetReliability

	window := cfg.Window
	if window < 1 {
		window = 1
	}
	alpha := 2 / float64(window+1)
	raw := clamp(sig.Noise, 0, 1)
	if old.Primed {
		next.Noise = alpha*raw + (1-alpha)*old.Noise
	} else {
		next.Noise = raw
		next.Primed = true
	}

	high := 1 - cfg.TargetReliability
	low := cfg.LowWatermarkRatio * high
	hysteresis := cfg.Hysteresis
	if hysteresis < 1 {
		hysteresis = 1
	}

	decision := Decision{Action: "hold", Reason: fmt.Sprintf("noise %.4f within [%.4f, %.4f]", next.Noise, low, high)}
	rho := old.Rho

	switch {
	case next.Noise > high:
		next.AboveCount = old.AboveCount + 1
		next.BelowCount = 0
		if next.AboveCount >= hysteresis {
			rho = math.Max(old.Rho*cfg.IncreaseFactor, old.Rho+cfg.MinStep)
			next.AboveCount = 0
			decision = Decision{Action: "increase", Reason: fmt.Sprintf("noise %.4f above %.4f", next.Noise, high)}
		} else {
			decision.Reason = fmt.Sprintf("noise %.4f above %.4f, waiting %d/%d", next.Noise, high, next.AboveCount, hysteresis)
		}
	case next.Noise < low:
		next.BelowCount = old.BelowCount + 1
		next.AboveCount = 0
		if next.BelowCount >= hysteresis {
			rho = old.Rho * cfg.DecreaseFactor
			next.BelowCount = 0
			decision = Decision{Action: "decrease", Reason: fmt.Sprintf("noise %.4f below %.4f", next.Noise, low)}
		} else {
			decision.Reason = fmt.Sprintf("noise %.4f below %.4f, waiting %d/%d", next.Noise, low, next.BelowCount, hysteresis)
		}
	default:
		next.AboveCount = 0
		next.BelowCount = 0
	}

	next.Rho = clamp(rho, cfg.RhoMin, cfg.RhoMax)
	if next.Rho == old.Rho && decision.Action != "hold" {
		decision.Reason += fmt.Sprintf(", ρ pinned at %.4f", next.Rho)
	}

	return Result{
		NewState: next,
		Decision: decision,
		Metrics: Metrics{
			RawNoise: raw,
			Smoothed: next.Noise,
			High:     high,
			Low:      low,
			Delta:    next.Rho - old.Rho,
		},
	}
}

// #endregion update-function

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
