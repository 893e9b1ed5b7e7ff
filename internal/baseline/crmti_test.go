package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/lods-sim/internal/alloc"
	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/protocol"
	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// #region helpers
// perfectMedium answers every plan exactly, without a channel model.
type perfectMedium struct {
	present map[uint64]bool
	frames  int
}

func (m *perfectMedium) Transmit(plan protocol.Plan) (protocol.Reception, error) {
	m.frames++
	counts := make([]int, plan.Size)
	for _, tag := range plan.Tags {
		if m.present[tag] {
			counts[alloc.SlotFor(tag, plan.Seed, plan.Size)]++
		}
	}
	rx := protocol.Reception{Size: plan.Size, Slots: make([]protocol.Reading, plan.Size), Energy: 1, AirtimeUs: 10}
	for i, n := range counts {
		switch {
		case n == 1:
			rx.Slots[i] = protocol.Reading{Ones: plan.Bits}
		case n > 1:
			rx.Slots[i] = protocol.Reading{Ones: plan.Bits, Garbled: true}
		}
	}
	return rx, nil
}

// jammedMedium reads every slot as a collision.
type jammedMedium struct{}

func (jammedMedium) Transmit(plan protocol.Plan) (protocol.Reception, error) {
	rx := protocol.Reception{Size: plan.Size, Slots: make([]protocol.Reading, plan.Size)}
	for i := range rx.Slots {
		rx.Slots[i] = protocol.Reading{Ones: plan.Bits, Garbled: true}
	}
	return rx, nil
}

func setup(t *testing.T, n, missing int) (protocol.Setup, map[uint64]bool) {
	t.Helper()
	cfg := config.Default()
	cfg.Algorithm = config.AlgorithmCRMTI
	cfg.TagCount = n
	cfg.MissingCount = missing
	cfg.MaxRounds = 50

	tags := make([]uint64, n)
	present := make(map[uint64]bool, n)
	for i := range tags {
		tags[i] = uint64(1000 + i)
		present[tags[i]] = i >= missing
	}
	return protocol.Setup{Config: cfg, Tags: tags, Seed: 7}, present
}

func run(t *testing.T, algo *CRMTI, m protocol.Medium) []state.RoundStatistics {
	t.Helper()
	var rounds []state.RoundStatistics
	for !algo.Done() {
		st, err := algo.RunRound(m)
		require.NoError(t, err)
		rounds = append(rounds, st)
		require.LessOrEqual(t, len(rounds), 50)
	}
	return rounds
}

// #endregion helpers

func TestCRMTIPerfectChannel(t *testing.T) {
	s, present := setup(t, 300, 30)
	algo := NewCRMTI()
	require.NoError(t, algo.Initialize(s))

	rounds := run(t, algo, &perfectMedium{present: present})

	last := rounds[len(rounds)-1]
	assert.Equal(t, 0, last.Undetermined)
	assert.Equal(t, 300, last.Finalized)
	for _, d := range algo.Decisions() {
		if present[d.TagID] {
			assert.Equal(t, state.PresentConfirmed, d.Decision, "tag %d", d.TagID)
		} else {
			assert.Equal(t, state.MissingConfirmed, d.Decision, "tag %d", d.TagID)
		}
	}
}

func TestCRMTICumulativeEnergy(t *testing.T) {
	s, present := setup(t, 100, 10)
	algo := NewCRMTI()
	require.NoError(t, algo.Initialize(s))

	rounds := run(t, algo, &perfectMedium{present: present})

	for i, st := range rounds {
		assert.Equal(t, float64(i+1), st.Energy)
		assert.Equal(t, i+1, st.Round)
		assert.GreaterOrEqual(t, st.FrameSize, s.Config.FrameSizeMin)
	}
}

func TestCRMTIStopsWithoutProgress(t *testing.T) {
	s, _ := setup(t, 50, 5)
	algo := NewCRMTI()
	require.NoError(t, algo.Initialize(s))

	rounds := run(t, algo, jammedMedium{})

	assert.Len(t, rounds, s.Config.Baseline.StableRounds)
	for _, d := range algo.Decisions() {
		assert.Equal(t, state.Undetermined, d.Decision)
		assert.Zero(t, d.Round)
	}
}

func TestCRMTIRequiresInitialize(t *testing.T) {
	_, err := NewCRMTI().RunRound(jammedMedium{})
	require.Error(t, err)
}

func TestCRMTIRejectsInvalidConfig(t *testing.T) {
	s, _ := setup(t, 10, 1)
	s.Config.Baseline.StableRounds = 0
	err := NewCRMTI().Initialize(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfiguration))
}
