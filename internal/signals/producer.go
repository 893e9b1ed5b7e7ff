package signals

// #region producer

// Producer computes channel-quality signals from round counts. It never reads
// ground truth.
type Producer struct {
	config ProducerConfig
}

// NewProducer creates a Producer.
func NewProducer(config ProducerConfig) *Producer {
	return &Producer{config: config}
}

// #endregion producer

// #region produce

// Produce computes all signals from the given input.
func (p *Producer) Produce(input RoundInput) ChannelSignals {
	sig := ChannelSignals{
		PhantomRate:      p.phantomRate(input),
		SilenceRate:      ratio(input.UnexpectedSilence, input.LeaningPresent),
		DisagreementRate: ratio(input.Disagreements, input.Pairs),
	}
	sig.Noise = clamp(p.config.PhantomWeight*sig.PhantomRate +
		p.config.SilenceWeight*sig.SilenceRate +
		p.config.DisagreementWeight*sig.DisagreementRate)
	return sig
}

// #endregion produce

// #region phantom

// phantomRate is the share of slots whose reading contradicts the reader's
// own prediction in a way no absent tag can explain.
func (p *Producer) phantomRate(input RoundInput) float64 {
	return ratio(input.PhantomReplies+input.PhantomCollisions, input.ExpectedEmpty+input.ExpectedSingles)
}

// #endregion phantom

// #region helpers

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return clamp(float64(num) / float64(den))
}

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
