package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/danielpatrickdp/lods-sim/internal/errors"
)

// EnvPrefix prefixes environment overrides, e.g. LODS_IMPAIRMENT_BER.
const EnvPrefix = "LODS"

// SetDefaults registers every default with v. Keys must be registered for
// environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("algorithm", string(d.Algorithm))
	v.SetDefault("tag_count", d.TagCount)
	v.SetDefault("missing_count", d.MissingCount)
	v.SetDefault("frame_size_min", d.FrameSizeMin)
	v.SetDefault("frame_size_max", d.FrameSizeMax)
	v.SetDefault("load_factor", d.LoadFactor)
	v.SetDefault("reply_bits", d.ReplyBits)
	v.SetDefault("vote_threshold", d.VoteThreshold)
	v.SetDefault("rho_min", d.RhoMin)
	v.SetDefault("rho_max", d.RhoMax)
	v.SetDefault("rho_init", d.RhoInit)
	v.SetDefault("target_reliability", d.TargetReliability)
	v.SetDefault("min_votes", d.MinVotes)
	v.SetDefault("max_rounds", d.MaxRounds)
	v.SetDefault("max_split_depth", d.MaxSplitDepth)
	v.SetDefault("forced_resolution_budget", d.ForcedResolutionBudget)

	// Channel impairments
	v.SetDefault("impairment.ber", d.Impairment.BER)
	v.SetDefault("impairment.drift_sigma", d.Impairment.DriftSigma)
	v.SetDefault("impairment.erase_prob", d.Impairment.EraseProb)
	v.SetDefault("impairment.erase_mean_len", d.Impairment.EraseMeanLen)
	v.SetDefault("impairment.capture_enabled", d.Impairment.CaptureEnabled)
	v.SetDefault("impairment.capture_threshold", d.Impairment.CaptureThreshold)
	v.SetDefault("impairment.tx_energy", d.Impairment.TxEnergy)
	v.SetDefault("impairment.idle_energy", d.Impairment.IdleEnergy)

	// Controller
	v.SetDefault("controller.window", d.Controller.Window)
	v.SetDefault("controller.increase_factor", d.Controller.IncreaseFactor)
	v.SetDefault("controller.decrease_factor", d.Controller.DecreaseFactor)
	v.SetDefault("controller.min_step", d.Controller.MinStep)
	v.SetDefault("controller.low_watermark_ratio", d.Controller.LowWatermarkRatio)
	v.SetDefault("controller.hysteresis", d.Controller.Hysteresis)

	// Baseline
	v.SetDefault("baseline.load_factor", d.Baseline.LoadFactor)
	v.SetDefault("baseline.stable_rounds", d.Baseline.StableRounds)

	// Batch
	v.SetDefault("batch.trials", d.Batch.Trials)
	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.base_seed", d.Batch.BaseSeed)
}

// NewViper returns a viper instance with defaults and LODS_* environment
// bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configPath (YAML, TOML or JSON by extension) over the defaults and
// environment. An empty path loads defaults and environment only. The result
// is not validated.
func Load(configPath string) (SimulationConfig, error) {
	v := NewViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return SimulationConfig{}, errors.Wrapf(err, "failed to read config file %s", configPath)
		}
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals a configuration from a prepared viper instance.
func LoadWithViper(v *viper.Viper) (SimulationConfig, error) {
	var cfg SimulationConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SimulationConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}
	return cfg, nil
}
