package signals

// #region config

// ProducerConfig weighs the channel-quality proxies into one noise figure.
type ProducerConfig struct {
	PhantomWeight      float64 // unexpected activity in slots expected empty or single
	SilenceWeight      float64 // silence from tags whose evidence leans present
	DisagreementWeight float64 // conflicting observations of one tag within a round
}

// DefaultProducerConfig returns the default weights. A disagreement implies
// one of two observations was wrong, hence the half weight.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		PhantomWeight:      1.0,
		SilenceWeight:      1.0,
		DisagreementWeight: 0.5,
	}
}

// #endregion config

// #region input

// RoundInput bundles the reader-visible counts of one round.
type RoundInput struct {
	ExpectedEmpty     int // slots no registered tag maps to
	PhantomReplies    int // of those, slots that read a reply or a collision
	ExpectedSingles   int // slots exactly one registered tag maps to
	PhantomCollisions int // of those, slots that read a collision

	LeaningPresent    int // observations of tags whose evidence favoured presence
	UnexpectedSilence int // of those, observations that read silent

	Pairs         int // tags observed twice this round
	Disagreements int // of those, pairs that conflicted
}

// #endregion input

// #region output

// ChannelSignals are the per-round proxies the controller reacts to. Rates
// are in [0,1].
type ChannelSignals struct {
	PhantomRate      float64 `json:"phantom_rate" yaml:"phantom_rate"`
	SilenceRate      float64 `json:"silence_rate" yaml:"silence_rate"`
	DisagreementRate float64 `json:"disagreement_rate" yaml:"disagreement_rate"`
	Noise            float64 `json:"noise" yaml:"noise"` // weighted composite, clamped to [0,1]
}

// #endregion output
