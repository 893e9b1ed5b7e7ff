// Package baseline holds reference algorithms that Lods-mTI is compared
// against. They share the protocol.Algorithm contract and the same simulated
// air interface.
package baseline

import (
	"math"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/lods-sim/internal/alloc"
	"github.com/danielpatrickdp/lods-sim/internal/channel"
	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/logging"
	"github.com/danielpatrickdp/lods-sim/internal/protocol"
	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// CRMTI is a collision-resolving missing-tag identification baseline. Each
// round hashes the unknown tags into a frame of single-bit replies: an
// expected singleton decides its tag, an empty expected collision clears all
// of its tags, everything else is retried next round. It trusts every reading
// as-is, so channel noise turns directly into wrong decisions.
type CRMTI struct {
	cfg     config.SimulationConfig
	seed    uint64
	tags    []uint64
	decided map[uint64]state.TagDecision
	log     *zap.SugaredLogger

	round     int
	stale     int
	energy    float64
	airtimeUs float64
	done      bool
}

// NewCRMTI returns an uninitialized baseline.
func NewCRMTI() *CRMTI {
	return &CRMTI{}
}

// Initialize implements protocol.Algorithm.
func (c *CRMTI) Initialize(setup protocol.Setup) error {
	if err := setup.Config.Validate(); err != nil {
		return err
	}
	c.cfg = setup.Config
	c.seed = setup.Seed
	c.tags = append([]uint64(nil), setup.Tags...)
	c.decided = make(map[uint64]state.TagDecision, len(c.tags))
	c.log = setup.Logger
	if c.log == nil {
		c.log = logging.ComponentLogger("cr-mti")
	}
	c.round, c.stale, c.energy, c.airtimeUs, c.done = 0, 0, 0, 0, false
	return nil
}

// Done implements protocol.Algorithm.
func (c *CRMTI) Done() bool {
	return c.done
}

// RunRound implements protocol.Algorithm.
func (c *CRMTI) RunRound(m protocol.Medium) (state.RoundStatistics, error) {
	if c.decided == nil {
		return state.RoundStatistics{}, errors.New("cr-mti: not initialized")
	}
	if c.done {
		return state.RoundStatistics{}, errors.New("cr-mti: trial already finalized")
	}

	c.round++
	unknown := c.unknown()
	size := c.frameSize(len(unknown))
	seed := alloc.Derive(c.seed, "crmti", uint64(c.round))
	expected := alloc.Allocate(unknown, seed, size)

	rx, err := m.Transmit(protocol.Plan{Size: size, Seed: seed, Bits: 1, Tags: unknown})
	if err != nil {
		return state.RoundStatistics{}, errors.Wrapf(err, "cr-mti round %d", c.round)
	}
	c.energy += rx.Energy
	c.airtimeUs += rx.AirtimeUs

	st := state.RoundStatistics{
		Round:      c.round,
		FrameSize:  size,
		TotalSlots: size,
		Erasures:   rx.Oracle.Erased,
	}
	progress := 0
	for i, group := range expected {
		read := rx.Slots[i].State(1)
		if read == channel.Collision {
			st.Collisions++
		}
		switch {
		case len(group) == 0:
			continue
		case len(group) == 1 && read == channel.Single:
			c.decide(group[0], state.PresentConfirmed)
			progress++
		case len(group) == 1 && read == channel.Collision:
			st.PhantomCollisions++
		case read == channel.Empty:
			for _, tag := range group {
				c.decide(tag, state.MissingConfirmed)
				progress++
			}
		}
	}

	if progress == 0 {
		c.stale++
	} else {
		c.stale = 0
	}
	remaining := len(c.tags) - len(c.decided)
	if remaining == 0 || c.stale >= c.cfg.Baseline.StableRounds || c.round >= c.cfg.MaxRounds {
		c.done = true
	}

	st.Throughput = float64(progress) / float64(size)
	st.Energy = c.energy
	st.AirtimeUs = c.airtimeUs
	st.Finalized = len(c.decided)
	st.Undetermined = remaining

	c.log.Debugw("round complete",
		logging.FieldRound, c.round,
		logging.FieldFrameSize, size,
		logging.FieldCollisions, st.Collisions,
		logging.FieldFinalized, st.Finalized,
		logging.FieldUndetermined, remaining,
	)
	return st, nil
}

// Decisions implements protocol.Algorithm. Undecided tags are reported as
// Undetermined.
func (c *CRMTI) Decisions() []state.TagDecision {
	out := make([]state.TagDecision, 0, len(c.tags))
	for _, tag := range c.tags {
		d, ok := c.decided[tag]
		if !ok {
			d = state.TagDecision{TagID: tag, Decision: state.Undetermined, Confidence: 0.5}
		}
		out = append(out, d)
	}
	return out
}

func (c *CRMTI) decide(tag uint64, d state.Decision) {
	conf := 0.0
	if d == state.PresentConfirmed {
		conf = 1
	}
	c.decided[tag] = state.TagDecision{TagID: tag, Decision: d, Confidence: conf, Votes: 1, Round: c.round}
}

func (c *CRMTI) unknown() []uint64 {
	out := make([]uint64, 0, len(c.tags)-len(c.decided))
	for _, tag := range c.tags {
		if _, ok := c.decided[tag]; !ok {
			out = append(out, tag)
		}
	}
	return out
}

// frameSize is ceil(n·λ) bounded by the configured frame limits.
func (c *CRMTI) frameSize(n int) int {
	size := int(math.Ceil(float64(n) * c.cfg.Baseline.LoadFactor))
	if size < c.cfg.FrameSizeMin {
		size = c.cfg.FrameSizeMin
	}
	if size > c.cfg.FrameSizeMax {
		size = c.cfg.FrameSizeMax
	}
	return size
}
