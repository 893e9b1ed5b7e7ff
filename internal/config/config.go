// Package config holds the simulation configuration: its types, defaults,
// viper loading and validation. A SimulationConfig is treated as immutable once
// a trial starts.
package config

import (
	"github.com/danielpatrickdp/lods-sim/internal/channel"
)

// Algorithm is the tagged enumeration of runnable protocols.
type Algorithm string

const (
	AlgorithmLodsMTI Algorithm = "lods-mti"
	AlgorithmCRMTI   Algorithm = "cr-mti"
)

// Algorithms lists every known algorithm in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmLodsMTI, AlgorithmCRMTI}
}

// #region types
// SimulationConfig is the full parameter set of a trial.
type SimulationConfig struct {
	Algorithm Algorithm `mapstructure:"algorithm" json:"algorithm" yaml:"algorithm"`

	TagCount     int `mapstructure:"tag_count" json:"tag_count" yaml:"tag_count"`
	MissingCount int `mapstructure:"missing_count" json:"missing_count" yaml:"missing_count"`

	FrameSizeMin int     `mapstructure:"frame_size_min" json:"frame_size_min" yaml:"frame_size_min"`
	FrameSizeMax int     `mapstructure:"frame_size_max" json:"frame_size_max" yaml:"frame_size_max"`
	LoadFactor   float64 `mapstructure:"load_factor" json:"load_factor" yaml:"load_factor"` // slots per active tag

	ReplyBits     int `mapstructure:"reply_bits" json:"reply_bits" yaml:"reply_bits"`
	VoteThreshold int `mapstructure:"vote_threshold" json:"vote_threshold" yaml:"vote_threshold"` // ones needed to read a reply

	RhoMin  float64 `mapstructure:"rho_min" json:"rho_min" yaml:"rho_min"`
	RhoMax  float64 `mapstructure:"rho_max" json:"rho_max" yaml:"rho_max"`
	RhoInit float64 `mapstructure:"rho_init" json:"rho_init" yaml:"rho_init"` // 0 starts at RhoMax

	TargetReliability      float64 `mapstructure:"target_reliability" json:"target_reliability" yaml:"target_reliability"`
	MinVotes               int     `mapstructure:"min_votes" json:"min_votes" yaml:"min_votes"`
	MaxRounds              int     `mapstructure:"max_rounds" json:"max_rounds" yaml:"max_rounds"`
	MaxSplitDepth          int     `mapstructure:"max_split_depth" json:"max_split_depth" yaml:"max_split_depth"`
	ForcedResolutionBudget int     `mapstructure:"forced_resolution_budget" json:"forced_resolution_budget" yaml:"forced_resolution_budget"` // 0 disables

	Impairment channel.Profile `mapstructure:"impairment" json:"impairment" yaml:"impairment"`
	Controller ControllerConfig `mapstructure:"controller" json:"controller" yaml:"controller"`
	Baseline   BaselineConfig   `mapstructure:"baseline" json:"baseline" yaml:"baseline"`
	Batch      BatchConfig      `mapstructure:"batch" json:"batch" yaml:"batch"`
}

// ControllerConfig tunes the ρ control law.
type ControllerConfig struct {
	Window            int     `mapstructure:"window" json:"window" yaml:"window"`
	IncreaseFactor    float64 `mapstructure:"increase_factor" json:"increase_factor" yaml:"increase_factor"`
	DecreaseFactor    float64 `mapstructure:"decrease_factor" json:"decrease_factor" yaml:"decrease_factor"`
	MinStep           float64 `mapstructure:"min_step" json:"min_step" yaml:"min_step"`
	LowWatermarkRatio float64 `mapstructure:"low_watermark_ratio" json:"low_watermark_ratio" yaml:"low_watermark_ratio"`
	Hysteresis        int     `mapstructure:"hysteresis" json:"hysteresis" yaml:"hysteresis"`
}

// BaselineConfig tunes the CR-MTI reference protocol.
type BaselineConfig struct {
	LoadFactor   float64 `mapstructure:"load_factor" json:"load_factor" yaml:"load_factor"`
	StableRounds int     `mapstructure:"stable_rounds" json:"stable_rounds" yaml:"stable_rounds"`
}

// BatchConfig controls batch runs of independent trials.
type BatchConfig struct {
	Trials   int    `mapstructure:"trials" json:"trials" yaml:"trials"`
	Workers  int    `mapstructure:"workers" json:"workers" yaml:"workers"` // 0 uses GOMAXPROCS
	BaseSeed uint64 `mapstructure:"base_seed" json:"base_seed" yaml:"base_seed"`
}

// #endregion types

// #region defaults
// Default returns the default configuration.
func Default() SimulationConfig {
	return SimulationConfig{
		Algorithm:         AlgorithmLodsMTI,
		TagCount:          1000,
		MissingCount:      50,
		FrameSizeMin:      128,
		FrameSizeMax:      4096,
		LoadFactor:        1.0,
		ReplyBits:         4,
		VoteThreshold:     3,
		RhoMin:            0.1,
		RhoMax:            1.0,
		TargetReliability: 0.95,
		MinVotes:          2,
		MaxRounds:         20,
		MaxSplitDepth:     8,
		Impairment: channel.Profile{
			CaptureThreshold: 3,
			TxEnergy:         1.0,
			IdleEnergy:       0.1,
		},
		Controller: DefaultControllerConfig(),
		Baseline: BaselineConfig{
			LoadFactor:   1.0,
			StableRounds: 3,
		},
		Batch: BatchConfig{
			Trials: 10,
		},
	}
}

// DefaultControllerConfig returns the controller defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Window:            4,
		IncreaseFactor:    1.5,
		DecreaseFactor:    0.8,
		MinStep:           0.05,
		LowWatermarkRatio: 0.5,
		Hysteresis:        1,
	}
}

// #endregion defaults

// StartRho is the redundancy fraction of the first round.
func (c SimulationConfig) StartRho() float64 {
	if c.RhoInit == 0 {
		return c.RhoMax
	}
	return c.RhoInit
}
