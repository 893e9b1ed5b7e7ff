package control

import "github.com/danielpatrickdp/lods-sim/internal/config"

// #region state
// State is the controller's adaptive state between rounds.
type State struct {
	Rho        float64 // redundancy fraction, always within [RhoMin, RhoMax]
	Noise      float64 // smoothed noise estimate
	Primed     bool    // Noise holds at least one sample
	Round      int
	Target     float64
	AboveCount int // consecutive rounds above the high watermark
	BelowCount int // consecutive rounds below the low watermark
}

// #endregion state

// #region decision
// Decision records what the update function decided.
type Decision struct {
	Action string // "increase" | "decrease" | "hold"
	Reason string
}

// #endregion decision

// #region metrics
// Metrics captures telemetry from an update cycle.
type Metrics struct {
	RawNoise float64
	Smoothed float64
	High     float64
	Low      float64
	Delta    float64 // new ρ - old ρ
}

// #endregion metrics

// #region update-config
// Config holds the bounds and step parameters of the ρ law.
type Config struct {
	RhoMin            float64
	RhoMax            float64
	TargetReliability float64
	Window            int     // EWMA span in rounds
	IncreaseFactor    float64 // multiplicative increase above the high watermark
	DecreaseFactor    float64 // multiplicative decrease below the low watermark
	MinStep           float64 // smallest increase
	LowWatermarkRatio float64 // low watermark as a fraction of the high one
	Hysteresis        int     // consecutive rounds needed before a move
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return FromSimulation(config.Default())
}

// FromSimulation extracts the controller configuration from a simulation
// configuration.
func FromSimulation(c config.SimulationConfig) Config {
	return Config{
		RhoMin:            c.RhoMin,
		RhoMax:            c.RhoMax,
		TargetReliability: c.TargetReliability,
		Window:            c.Controller.Window,
		IncreaseFactor:    c.Controller.IncreaseFactor,
		DecreaseFactor:    c.Controller.DecreaseFactor,
		MinStep:           c.Controller.MinStep,
		LowWatermarkRatio: c.Controller.LowWatermarkRatio,
		Hysteresis:        c.Controller.Hysteresis,
	}
}

// #endregion update-config

// #region update-result
// Result bundles everything returned by Update().
type Result struct {
	NewState State
	Decision Decision
	Metrics  Metrics
}

// #endregion update-result
