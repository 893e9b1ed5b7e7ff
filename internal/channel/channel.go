package channel

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/danielpatrickdp/lods-sim/internal/errors"
)

// ErrDivergence marks a computed probability that left [0,1]. The trial
// aborts on it.
var ErrDivergence = errors.New("channel model diverged")

// Model applies a Profile to transmissions. It is stateless apart from the
// profile; randomness and burst state are owned by the caller so that a
// trial's draws come from a single seeded source.
type Model struct {
	profile Profile
}

// NewModel copies p into a new model.
func NewModel(p Profile) *Model {
	return &Model{profile: p}
}

// Profile returns the model's profile.
func (m *Model) Profile() Profile {
	return m.profile
}

// #region apply
// Apply observes a single transmission of bits in isolation: its slot after
// drift, with bit flips, erasure and energy applied. A reply drifted out of its
// slot leaves an empty observation of the intended slot.
func (m *Model) Apply(rng *rand.Rand, burst *BurstState, tx Transmission, bits int) (Observation, error) {
	if err := m.checkProfile(); err != nil {
		return Observation{}, err
	}
	landing := m.drift(rng, tx.Slot)
	var arrivals []Transmission
	if landing == tx.Slot {
		arrivals = []Transmission{tx}
	}
	obs, err := m.observe(rng, burst, tx.Slot, bits, arrivals)
	if err != nil {
		return Observation{}, err
	}
	obs.Energy += m.profile.TxEnergy
	return obs, nil
}

// ApplyFrame observes a whole frame of size slots. Every transmission pays
// TxEnergy whether or not it survives; every slot with no arrival pays
// IdleEnergy. The frame airtime includes the opening query command.
func (m *Model) ApplyFrame(rng *rand.Rand, burst *BurstState, size, bits int, txs []Transmission) (FrameObservation, error) {
	if err := m.checkProfile(); err != nil {
		return FrameObservation{}, err
	}
	if size <= 0 {
		return FrameObservation{}, errors.Newf("frame size must be positive, got %d", size)
	}

	frame := FrameObservation{Size: size, Slots: make([]Observation, size)}
	bySlot := make([][]Transmission, size)
	for _, tx := range txs {
		landing := m.drift(rng, tx.Slot)
		if landing != tx.Slot {
			frame.Shifted++
		}
		if landing < 0 || landing >= size {
			frame.Lost++
			continue
		}
		bySlot[landing] = append(bySlot[landing], tx)
	}

	frame.AirtimeUs = CommandTimeUs(QueryBits)
	frame.Energy = float64(len(txs)) * m.profile.TxEnergy
	for slot := 0; slot < size; slot++ {
		obs, err := m.observe(rng, burst, slot, bits, bySlot[slot])
		if err != nil {
			return FrameObservation{}, errors.Wrapf(err, "slot %d", slot)
		}
		frame.Slots[slot] = obs
		frame.Energy += obs.Energy
		frame.AirtimeUs += obs.AirtimeUs
		if obs.Erased {
			frame.Erased++
		}
		if obs.Captured {
			frame.Captures++
		}
	}
	return frame, nil
}

// observe builds the slot observation for the replies that landed in it.
// Energy on the result covers only the idle cost; transmissions are charged
// by the caller.
func (m *Model) observe(rng *rand.Rand, burst *BurstState, slot, bits int, arrivals []Transmission) (Observation, error) {
	p := m.profile
	obs := Observation{Slot: slot, Bits: bits, Arrivals: len(arrivals)}
	if len(arrivals) == 0 {
		obs.Energy = p.IdleEnergy
		obs.AirtimeUs = IdleTimeUs()
	} else {
		obs.AirtimeUs = ReplyTimeUs(bits)
	}

	if m.erased(rng, burst) {
		obs.Erased = true
		return obs, nil
	}

	switch len(arrivals) {
	case 0:
		obs.Ones = flips(rng, bits, p.BER)
	case 1:
		obs.Ones = bits - flips(rng, bits, p.BER)
	default:
		if !p.CaptureEnabled {
			obs.Garbled = true
			obs.Ones = bits
			return obs, nil
		}
		ranked := append([]Transmission(nil), arrivals...)
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].PowerDbm != ranked[j].PowerDbm {
				return ranked[i].PowerDbm > ranked[j].PowerDbm
			}
			return ranked[i].TagID < ranked[j].TagID
		})
		delta := ranked[0].PowerDbm - ranked[1].PowerDbm
		if delta < p.CaptureThreshold {
			obs.Garbled = true
			obs.Ones = bits
			return obs, nil
		}
		ber, err := m.captureBER(delta)
		if err != nil {
			return Observation{}, err
		}
		obs.Captured = true
		obs.CaptureTag = ranked[0].TagID
		obs.Ones = bits - flips(rng, bits, ber)
	}
	return obs, nil
}

// #endregion apply

// #region impairments
// drift returns the slot a reply intended for slot actually lands in. The
// offset grows with the square root of the slot position.
func (m *Model) drift(rng *rand.Rand, slot int) int {
	if m.profile.DriftSigma <= 0 {
		return slot
	}
	sigma := m.profile.DriftSigma * math.Sqrt(float64(slot+1))
	offset := rng.NormFloat64() * sigma
	return slot + int(math.Round(offset))
}

// erased advances the burst process by one slot.
func (m *Model) erased(rng *rand.Rand, burst *BurstState) bool {
	if burst == nil {
		return false
	}
	if burst.Remaining > 0 {
		burst.Remaining--
		return true
	}
	if m.profile.EraseProb <= 0 {
		return false
	}
	if rng.Float64() >= m.profile.EraseProb {
		return false
	}
	burst.Bursts++
	burst.Remaining = m.burstLength(rng) - 1
	return true
}

// burstLength draws 1 + Geometric so that the mean is EraseMeanLen.
func (m *Model) burstLength(rng *rand.Rand) int {
	mean := m.profile.EraseMeanLen
	if mean <= 1 {
		return 1
	}
	p := 1 / mean
	u := 1 - rng.Float64() // (0,1]
	return 1 + int(math.Floor(math.Log(u)/math.Log(1-p)))
}

// captureBER is the bit error rate of the strongest reply when it exceeds the
// runner-up by deltaDb.
func (m *Model) captureBER(deltaDb float64) (float64, error) {
	sir := math.Pow(10, deltaDb/10)
	ber := m.profile.BER + 0.5*math.Exp(-sir)
	if err := checkProbability("capture bit error", ber); err != nil {
		return 0, err
	}
	return ber, nil
}

func (m *Model) checkProfile() error {
	if err := checkProbability("bit error", m.profile.BER); err != nil {
		return err
	}
	return checkProbability("erasure", m.profile.EraseProb)
}

// flips counts Bernoulli(p) successes over n bits.
func flips(rng *rand.Rand, n int, p float64) int {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	count := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			count++
		}
	}
	return count
}

func checkProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return errors.Mark(errors.Newf("%s probability %v outside [0,1]", name, p), ErrDivergence)
	}
	return nil
}

// #endregion impairments

// #region error-rates
// ErrorRates returns the per-observation probabilities a reader uses to weigh
// a vote at slotPos: pMiss that a present tag reads as silent, and pFalse that
// an absent tag reads as present.
func (m *Model) ErrorRates(bits, threshold, slotPos int) (pMiss, pFalse float64, err error) {
	if err := m.checkProfile(); err != nil {
		return 0, 0, err
	}
	p := m.profile
	if p.Ideal() {
		return 0, 0, nil
	}

	noiseHit := binomialTail(bits, p.BER, threshold)
	replyLoss := binomialTail(bits, p.BER, bits-threshold+1)

	shift := 0.0
	if p.DriftSigma > 0 {
		sigma := p.DriftSigma * math.Sqrt(float64(slotPos+1))
		shift = math.Erfc(0.5 / (sigma * math.Sqrt2))
	}

	erase := 0.0
	if p.EraseProb > 0 {
		mean := math.Max(1, p.EraseMeanLen)
		erase = p.EraseProb * mean / (p.EraseProb*mean + 1 - p.EraseProb)
	}

	pMiss = erase + (1-erase)*(shift+(1-shift)*replyLoss)
	pFalse = (1 - erase) * (noiseHit + (1-noiseHit)*shift)

	if err := checkProbability("miss", pMiss); err != nil {
		return 0, 0, err
	}
	if err := checkProbability("false alarm", pFalse); err != nil {
		return 0, 0, err
	}
	return pMiss, pFalse, nil
}

// binomialTail is P(X >= k) for X ~ Binomial(n, p).
func binomialTail(n int, p float64, k int) float64 {
	if k <= 0 {
		return 1
	}
	if k > n {
		return 0
	}
	total := 0.0
	for i := k; i <= n; i++ {
		total += binomial(n, i) * math.Pow(p, float64(i)) * math.Pow(1-p, float64(n-i))
	}
	return math.Min(1, total)
}

func binomial(n, k int) float64 {
	c := 1.0
	for i := 1; i <= k; i++ {
		c = c * float64(n-k+i) / float64(i)
	}
	return c
}

// #endregion error-rates
