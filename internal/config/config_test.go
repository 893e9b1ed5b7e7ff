package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/lods-sim/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AlgorithmLodsMTI, cfg.Algorithm)
	assert.Equal(t, cfg.RhoMax, cfg.StartRho())

	cfg.RhoInit = 0.4
	assert.Equal(t, 0.4, cfg.StartRho())
}

func TestLoadWithoutFileMatchesDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	body := []byte(`
algorithm: cr-mti
tag_count: 300
missing_count: 30
impairment:
  ber: 0.02
  capture_enabled: true
controller:
  hysteresis: 2
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmCRMTI, cfg.Algorithm)
	assert.Equal(t, 300, cfg.TagCount)
	assert.Equal(t, 30, cfg.MissingCount)
	assert.Equal(t, 0.02, cfg.Impairment.BER)
	assert.True(t, cfg.Impairment.CaptureEnabled)
	assert.Equal(t, 3.0, cfg.Impairment.CaptureThreshold)
	assert.Equal(t, 2, cfg.Controller.Hysteresis)
	assert.Equal(t, 1.5, cfg.Controller.IncreaseFactor)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("LODS_MAX_ROUNDS", "7")
	t.Setenv("LODS_IMPAIRMENT_DRIFT_SIGMA", "0.25")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRounds)
	assert.Equal(t, 0.25, cfg.Impairment.DriftSigma)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *SimulationConfig)
	}{
		{"unknown algorithm", func(c *SimulationConfig) { c.Algorithm = "aloha" }},
		{"no tags", func(c *SimulationConfig) { c.TagCount = 0 }},
		{"too many missing", func(c *SimulationConfig) { c.MissingCount = c.TagCount + 1 }},
		{"inverted frame bounds", func(c *SimulationConfig) { c.FrameSizeMax = c.FrameSizeMin - 1 }},
		{"threshold above bits", func(c *SimulationConfig) { c.VoteThreshold = c.ReplyBits + 1 }},
		{"rho_min above rho_max", func(c *SimulationConfig) { c.RhoMin, c.RhoMax = 0.8, 0.5 }},
		{"rho_max above one", func(c *SimulationConfig) { c.RhoMax = 1.5 }},
		{"rho_init out of range", func(c *SimulationConfig) { c.RhoInit = 0.01 }},
		{"target at one", func(c *SimulationConfig) { c.TargetReliability = 1 }},
		{"no rounds", func(c *SimulationConfig) { c.MaxRounds = 0 }},
		{"negative depth", func(c *SimulationConfig) { c.MaxSplitDepth = -1 }},
		{"ber at half", func(c *SimulationConfig) { c.Impairment.BER = 0.5 }},
		{"negative drift", func(c *SimulationConfig) { c.Impairment.DriftSigma = -0.1 }},
		{"certain erasure", func(c *SimulationConfig) { c.Impairment.EraseProb = 1 }},
		{"flat increase", func(c *SimulationConfig) { c.Controller.IncreaseFactor = 1 }},
		{"zero hysteresis", func(c *SimulationConfig) { c.Controller.Hysteresis = 0 }},
		{"no stable rounds", func(c *SimulationConfig) { c.Baseline.StableRounds = 0 }},
		{"negative workers", func(c *SimulationConfig) { c.Batch.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
			assert.NotEmpty(t, errors.GetAllHints(err))
		})
	}
}

func TestValidateRejectsNonFiniteFloats(t *testing.T) {
	setters := map[string]func(*SimulationConfig, float64){
		"load_factor":                    func(c *SimulationConfig, v float64) { c.LoadFactor = v },
		"rho_min":                        func(c *SimulationConfig, v float64) { c.RhoMin = v },
		"rho_max":                        func(c *SimulationConfig, v float64) { c.RhoMax = v },
		"rho_init":                       func(c *SimulationConfig, v float64) { c.RhoInit = v },
		"target_reliability":             func(c *SimulationConfig, v float64) { c.TargetReliability = v },
		"impairment.ber":                 func(c *SimulationConfig, v float64) { c.Impairment.BER = v },
		"impairment.drift_sigma":         func(c *SimulationConfig, v float64) { c.Impairment.DriftSigma = v },
		"impairment.erase_prob":          func(c *SimulationConfig, v float64) { c.Impairment.EraseProb = v },
		"impairment.erase_mean_len":      func(c *SimulationConfig, v float64) { c.Impairment.EraseMeanLen = v },
		"impairment.capture_threshold":   func(c *SimulationConfig, v float64) { c.Impairment.CaptureThreshold = v },
		"impairment.tx_energy":           func(c *SimulationConfig, v float64) { c.Impairment.TxEnergy = v },
		"impairment.idle_energy":         func(c *SimulationConfig, v float64) { c.Impairment.IdleEnergy = v },
		"controller.increase_factor":     func(c *SimulationConfig, v float64) { c.Controller.IncreaseFactor = v },
		"controller.decrease_factor":     func(c *SimulationConfig, v float64) { c.Controller.DecreaseFactor = v },
		"controller.min_step":            func(c *SimulationConfig, v float64) { c.Controller.MinStep = v },
		"controller.low_watermark_ratio": func(c *SimulationConfig, v float64) { c.Controller.LowWatermarkRatio = v },
		"baseline.load_factor":           func(c *SimulationConfig, v float64) { c.Baseline.LoadFactor = v },
	}
	require.Len(t, setters, len(Default().floats()))

	for key, set := range setters {
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			t.Run(fmt.Sprintf("%s=%v", key, v), func(t *testing.T) {
				cfg := Default()
				set(&cfg, v)
				err := cfg.Validate()
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfiguration))
				assert.Contains(t, err.Error(), key)
			})
		}
	}
}

func TestValidateRejectsNaNRhoBounds(t *testing.T) {
	cfg := Default()
	cfg.RhoMin = math.NaN()
	cfg.RhoMax = math.NaN()
	cfg.RhoInit = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}
