package channel

// #region profile
// Profile configures the physical-layer impairments of one trial. A Model
// copies it at construction, so it is immutable for the trial's duration.
type Profile struct {
	BER              float64 `mapstructure:"ber" json:"ber" yaml:"ber"`                                           // per-bit flip probability
	DriftSigma       float64 `mapstructure:"drift_sigma" json:"drift_sigma" yaml:"drift_sigma"`                   // clock drift stddev, slot widths per sqrt(slot)
	EraseProb        float64 `mapstructure:"erase_prob" json:"erase_prob" yaml:"erase_prob"`                      // probability a burst starts at a slot
	EraseMeanLen     float64 `mapstructure:"erase_mean_len" json:"erase_mean_len" yaml:"erase_mean_len"`          // mean burst length in slots
	CaptureEnabled   bool    `mapstructure:"capture_enabled" json:"capture_enabled" yaml:"capture_enabled"`       // allow the strongest reply to survive a collision
	CaptureThreshold float64 `mapstructure:"capture_threshold" json:"capture_threshold" yaml:"capture_threshold"` // required power differential (dB)
	TxEnergy         float64 `mapstructure:"tx_energy" json:"tx_energy" yaml:"tx_energy"`                         // energy per tag transmission
	IdleEnergy       float64 `mapstructure:"idle_energy" json:"idle_energy" yaml:"idle_energy"`                   // energy per idle slot
}

// Ideal reports whether the profile introduces no bit errors, drift or erasures.
func (p Profile) Ideal() bool {
	return p.BER == 0 && p.DriftSigma == 0 && p.EraseProb == 0
}

// #endregion profile

// #region slot-state
// SlotState is the occupancy class of a slot.
type SlotState int

const (
	Empty SlotState = iota
	Single
	Collision
)

func (s SlotState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Single:
		return "single"
	case Collision:
		return "collision"
	default:
		return "unknown"
	}
}

// #endregion slot-state

// #region transmission
// Transmission is one tag reply scheduled into a slot of a frame.
type Transmission struct {
	TagID    uint64
	Slot     int
	PowerDbm float64
}

// BurstState carries an ongoing burst erasure across slots and frames.
type BurstState struct {
	Remaining int // erased slots still to come
	Bursts    int // bursts started so far
}

// #endregion transmission

// #region observation
// Observation is what the reader sees in one slot, plus oracle-side fields
// (Arrivals, Erased) that only statistics may read.
type Observation struct {
	Slot       int
	Bits       int
	Ones       int    // reply bits received as 1
	Garbled    bool   // overlapping replies without capture
	Captured   bool   // strongest reply recovered from a collision
	CaptureTag uint64 // valid when Captured

	Arrivals  int
	Erased    bool
	Energy    float64
	AirtimeUs float64
}

// Physical classifies the slot by how many replies actually landed in it.
func (o Observation) Physical() SlotState {
	switch {
	case o.Arrivals == 0:
		return Empty
	case o.Arrivals == 1:
		return Single
	default:
		return Collision
	}
}

// State classifies the slot as the reader decodes it with the given bit-vote
// threshold.
func (o Observation) State(threshold int) SlotState {
	if o.Garbled {
		return Collision
	}
	if o.Ones >= threshold {
		return Single
	}
	return Empty
}

// FrameObservation collects slot observations of one frame.
type FrameObservation struct {
	Size      int
	Slots     []Observation
	Shifted   int // replies moved out of their slot by drift
	Lost      int // replies moved out of the frame
	Erased    int
	Captures  int
	Energy    float64
	AirtimeUs float64
}

// #endregion observation
