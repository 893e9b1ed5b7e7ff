package engine

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/lods-sim/internal/alloc"
	"github.com/danielpatrickdp/lods-sim/internal/channel"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/protocol"
)

// Air is the simulated medium: present tags reply, the channel model corrupts
// the frame, and only reader-visible readings go back to the algorithm. Burst
// erasure state persists across frames.
type Air struct {
	model *channel.Model
	pop   *Population
	rng   *rand.Rand
	burst channel.BurstState

	Frames int // frames transmitted so far
}

// NewAir creates a medium over pop. rng must be the trial's source.
func NewAir(model *channel.Model, pop *Population, rng *rand.Rand) *Air {
	return &Air{model: model, pop: pop, rng: rng}
}

// Transmit broadcasts plan and returns what the reader observed.
func (a *Air) Transmit(plan protocol.Plan) (protocol.Reception, error) {
	if plan.Size < 1 {
		return protocol.Reception{}, errors.Newf("frame size must be >= 1, got %d", plan.Size)
	}
	txs := make([]channel.Transmission, 0, len(plan.Tags))
	for _, tag := range plan.Tags {
		if !a.pop.Present(tag) {
			continue
		}
		txs = append(txs, channel.Transmission{
			TagID:    tag,
			Slot:     alloc.SlotFor(tag, plan.Seed, plan.Size),
			PowerDbm: a.pop.PowerDbm(tag),
		})
	}

	frame, err := a.model.ApplyFrame(a.rng, &a.burst, plan.Size, plan.Bits, txs)
	if err != nil {
		return protocol.Reception{}, errors.Wrapf(err, "frame %d", a.Frames)
	}
	a.Frames++

	rec := protocol.Reception{
		Size:      frame.Size,
		Slots:     make([]protocol.Reading, frame.Size),
		Energy:    frame.Energy,
		AirtimeUs: frame.AirtimeUs,
		Oracle: protocol.OracleStats{
			Erased:   frame.Erased,
			Shifted:  frame.Shifted,
			Lost:     frame.Lost,
			Captures: frame.Captures,
		},
	}
	for i, obs := range frame.Slots {
		rec.Slots[i] = protocol.Reading{
			Ones:       obs.Ones,
			Garbled:    obs.Garbled,
			Captured:   obs.Captured,
			CaptureTag: obs.CaptureTag,
		}
		if obs.Physical() == channel.Collision {
			rec.Oracle.PhysicalCollisions++
		}
	}
	return rec, nil
}
