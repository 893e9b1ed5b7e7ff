package engine

import (
	"go.uber.org/zap"

	"github.com/danielpatrickdp/lods-sim/internal/alloc"
	"github.com/danielpatrickdp/lods-sim/internal/channel"
	"github.com/danielpatrickdp/lods-sim/internal/collision"
	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/control"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/gate"
	"github.com/danielpatrickdp/lods-sim/internal/logging"
	"github.com/danielpatrickdp/lods-sim/internal/protocol"
	"github.com/danielpatrickdp/lods-sim/internal/signals"
	"github.com/danielpatrickdp/lods-sim/internal/state"
	"github.com/danielpatrickdp/lods-sim/internal/vote"
)

// ErrForcedResolutionBudget marks a trial that left more collisions
// unresolved at the depth limit than its budget allows.
var ErrForcedResolutionBudget = errors.New("forced resolution budget exceeded")

// phantomWeight is the Positive tally credited for a collision read in a slot
// that only one registered tag maps to. It carries no LLR evidence.
const phantomWeight = 0.5

// #region phase
// Phase is a state of the LodsMTI round machine.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseFrameBuild
	PhaseChannelApply
	PhaseVoteAggregate
	PhaseControllerUpdate
	PhaseDecisionCheck
	PhaseFinalize
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseFrameBuild:
		return "frame_build"
	case PhaseChannelApply:
		return "channel_apply"
	case PhaseVoteAggregate:
		return "vote_aggregate"
	case PhaseControllerUpdate:
		return "controller_update"
	case PhaseDecisionCheck:
		return "decision_check"
	case PhaseFinalize:
		return "finalize"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// #endregion phase

// roundWork is the working set of the round in progress.
type roundWork struct {
	rho       float64
	active    []uint64
	primary   collision.Resolution
	verify    collision.Resolution
	primaryRx []protocol.Reception
	verifyRx  []protocol.Reception
	input     signals.RoundInput
	stats     state.RoundStatistics
}

// #region lods
// LodsMTI identifies missing tags with seeded hashed frames, a collision tree,
// likelihood voting and an adaptive fraction ρ of redundant verification slots.
type LodsMTI struct {
	cfg      config.SimulationConfig
	seed     uint64
	agg      *vote.Aggregator
	ctl      *control.Controller
	gate     *gate.Gate
	producer *signals.Producer
	log      *zap.SugaredLogger

	phase     Phase
	round     int
	work      roundWork
	energy    float64
	airtimeUs float64
	forced    int
	timeout   bool
}

// NewLodsMTI returns an uninitialized protocol instance.
func NewLodsMTI() *LodsMTI {
	return &LodsMTI{phase: PhaseInit}
}

// Initialize validates the configuration and prepares the aggregator and
// controller. ρ starts at RhoInit, or RhoMax when unset.
func (l *LodsMTI) Initialize(setup protocol.Setup) error {
	if err := setup.Config.Validate(); err != nil {
		return err
	}
	if setup.Model == nil {
		return errors.New("lods-mti: channel model required")
	}
	cfg := setup.Config
	l.cfg = cfg
	l.seed = setup.Seed
	l.agg = vote.New(setup.Model, cfg.ReplyBits, cfg.VoteThreshold, setup.Tags)
	l.ctl = control.NewController(control.FromSimulation(cfg), cfg.StartRho())
	l.gate = gate.NewGate(gate.GateConfig{TargetReliability: cfg.TargetReliability, MinVotes: cfg.MinVotes})
	l.producer = signals.NewProducer(signals.DefaultProducerConfig())
	l.log = setup.Logger
	if l.log == nil {
		l.log = logging.ComponentLogger("lods-mti")
	}
	l.phase = PhaseFrameBuild
	return nil
}

// Phase returns the current machine state.
func (l *LodsMTI) Phase() Phase {
	return l.phase
}

// Done reports whether the trial reached Finalize.
func (l *LodsMTI) Done() bool {
	return l.phase == PhaseDone
}

// Timeout reports whether the round budget ran out with tags undecided.
func (l *LodsMTI) Timeout() bool {
	return l.timeout
}

// Rho is the redundancy fraction the next round will use.
func (l *LodsMTI) Rho() float64 {
	return l.ctl.Rho()
}

// RunRound drives the machine through one full round.
func (l *LodsMTI) RunRound(m protocol.Medium) (state.RoundStatistics, error) {
	switch l.phase {
	case PhaseInit:
		return state.RoundStatistics{}, errors.New("lods-mti: not initialized")
	case PhaseDone:
		return state.RoundStatistics{}, errors.New("lods-mti: trial already finalized")
	}
	start := l.round
	for {
		if err := l.step(m); err != nil {
			return state.RoundStatistics{}, errors.Wrapf(err, "round %d %s", l.round, l.phase)
		}
		if l.phase == PhaseDone || (l.phase == PhaseFrameBuild && l.round > start) {
			return l.work.stats, nil
		}
	}
}

// Decisions lists one decision per registered tag in registration order.
func (l *LodsMTI) Decisions() []state.TagDecision {
	recs := l.agg.Records()
	out := make([]state.TagDecision, 0, len(recs))
	for _, rec := range recs {
		d := rec.Decision
		if d == "" {
			d = state.Undetermined
		}
		out = append(out, state.TagDecision{
			TagID:      rec.TagID,
			Decision:   d,
			Confidence: rec.Confidence,
			Votes:      rec.Votes,
			Round:      rec.FinalizedRound,
		})
	}
	return out
}

func (l *LodsMTI) step(m protocol.Medium) error {
	switch l.phase {
	case PhaseFrameBuild:
		if err := l.buildFrames(); err != nil {
			return err
		}
		l.phase = PhaseChannelApply
	case PhaseChannelApply:
		if err := l.applyChannel(m); err != nil {
			return err
		}
		l.phase = PhaseVoteAggregate
	case PhaseVoteAggregate:
		if err := l.aggregate(); err != nil {
			return err
		}
		l.phase = PhaseControllerUpdate
	case PhaseControllerUpdate:
		l.updateController()
		l.phase = PhaseDecisionCheck
	case PhaseDecisionCheck:
		l.phase = l.checkDecisions()
	case PhaseFinalize:
		l.finalize()
		l.phase = PhaseDone
	default:
		return errors.Newf("no transition from phase %s", l.phase)
	}
	return nil
}

// #endregion lods

// #region frame-build

// buildFrames plans round r: every active tag goes into the primary frame, and
// the fraction ρ of them picked by hash also gets a separate verification frame.
func (l *LodsMTI) buildFrames() error {
	cfg := l.cfg
	l.round++
	r := uint64(l.round)

	active := l.agg.Active()
	rho := l.ctl.Rho()
	size := alloc.FrameSize(len(active), cfg.LoadFactor, cfg.FrameSizeMin, cfg.FrameSizeMax)
	primary := collision.Resolve(active, alloc.Derive(l.seed, "round", r), size, cfg.MaxSplitDepth)

	pick := alloc.Derive(l.seed, "select", r)
	var chosen []uint64
	for _, tag := range active {
		if alloc.Unit(tag, pick) < rho {
			chosen = append(chosen, tag)
		}
	}
	var verify collision.Resolution
	if len(chosen) > 0 {
		vsize := alloc.FrameSize(len(chosen), cfg.LoadFactor, cfg.FrameSizeMin, cfg.FrameSizeMax)
		verify = collision.Resolve(chosen, alloc.Derive(l.seed, "verify", r), vsize, cfg.MaxSplitDepth)
	}

	l.work = roundWork{
		rho:     rho,
		active:  active,
		primary: primary,
		verify:  verify,
		stats:   state.RoundStatistics{
			Round:      l.round,
			FrameSize:  size,
			TotalSlots: primary.TotalSlots + verify.TotalSlots,
			Rho:        rho,
			VerifyTags: len(chosen),
			Forced:     primary.Forced + verify.Forced,
			Splits:     primary.Splits + verify.Splits,

			ExpectedCollision: alloc.ExpectedCollisionFraction(len(active), size),
		},
	}

	l.forced += primary.Forced + verify.Forced
	if l.work.stats.Forced > 0 {
		l.log.Debugw("collisions left at depth limit",
			logging.FieldRound, l.round,
			logging.FieldForced, l.work.stats.Forced,
		)
	}
	if cfg.ForcedResolutionBudget > 0 && l.forced > cfg.ForcedResolutionBudget {
		return errors.Wrapf(ErrForcedResolutionBudget, "%d forced slots, budget %d", l.forced, cfg.ForcedResolutionBudget)
	}
	return nil
}

// #endregion frame-build

// #region channel-apply
func (l *LodsMTI) applyChannel(m protocol.Medium) error {
	var err error
	if l.work.primaryRx, err = l.transmit(m, l.work.primary); err != nil {
		return err
	}
	if l.work.verifyRx, err = l.transmit(m, l.work.verify); err != nil {
		return err
	}
	return nil
}

func (l *LodsMTI) transmit(m protocol.Medium, res collision.Resolution) ([]protocol.Reception, error) {
	out := make([]protocol.Reception, 0, len(res.Frames))
	for _, f := range res.Frames {
		groups := make([][]uint64, len(f.Slots))
		for i, s := range f.Slots {
			groups[i] = s.Tags
		}
		rx, err := m.Transmit(protocol.Plan{
			Size: f.Size,
			Seed: f.Seed,
			Bits: l.cfg.ReplyBits,
			Tags: protocol.FrameTags(groups),
		})
		if err != nil {
			return nil, err
		}
		l.energy += rx.Energy
		l.airtimeUs += rx.AirtimeUs
		l.work.stats.Erasures += rx.Oracle.Erased
		out = append(out, rx)
	}
	return out, nil
}

// #endregion channel-apply

// #region vote-aggregate
func (l *LodsMTI) aggregate() error {
	l.agg.BeginRound()

	leaning := make(map[uint64]state.Decision, len(l.work.active))
	for _, tag := range l.work.active {
		rec, _ := l.agg.Get(tag)
		leaning[tag] = gate.Leaning(rec)
	}

	if err := l.attribute(l.work.primary, l.work.primaryRx, false, leaning); err != nil {
		return err
	}
	if err := l.attribute(l.work.verify, l.work.verifyRx, true, leaning); err != nil {
		return err
	}
	l.work.input.Pairs, l.work.input.Disagreements = l.agg.RoundDisagreements()
	return nil
}

// attribute turns the readings of resolving slots into votes. Slots that were
// split further carry no vote of their own.
func (l *LodsMTI) attribute(res collision.Resolution, rxs []protocol.Reception, verification bool, leaning map[uint64]state.Decision) error {
	in := &l.work.input
	threshold := l.cfg.VoteThreshold

	for fi, f := range res.Frames {
		rx := rxs[fi]
		for si, slot := range f.Slots {
			reading := rx.Slots[si]
			st := reading.State(threshold)
			if st == channel.Collision {
				l.work.stats.Collisions++
			}

			switch {
			case len(slot.Tags) == 0:
				in.ExpectedEmpty++
				if st != channel.Empty {
					in.PhantomReplies++
				}
			case len(slot.Tags) == 1:
				in.ExpectedSingles++
				tag := slot.Tags[0]
				o := vote.Outcome{SlotPos: si, Verification: verification}
				switch st {
				case channel.Empty:
					o.Kind = vote.Absent
				case channel.Single:
					o.Kind = vote.Present
				default:
					o.Kind = vote.Ambiguous
					o.Weight = phantomWeight
					in.PhantomCollisions++
					l.work.stats.PhantomCollisions++
				}
				if leaning[tag] == state.PresentConfirmed {
					in.LeaningPresent++
					if o.Kind == vote.Absent {
						in.UnexpectedSilence++
					}
				}
				if err := l.agg.Record(tag, o); err != nil {
					return err
				}
			case slot.Forced:
				if err := l.attributeForced(slot, reading, st, si, verification); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// attributeForced splits the reading of a slot still shared by k tags. Silence
// clears all of them and a captured reply confirms its sender. Anything else
// is recorded as Ambiguous with weight 1/k and leaves their LLR unchanged.
func (l *LodsMTI) attributeForced(slot collision.Slot, reading protocol.Reading, st channel.SlotState, pos int, verification bool) error {
	k := len(slot.Tags)
	captured := st == channel.Single && reading.Captured && contains(slot.Tags, reading.CaptureTag)

	for _, tag := range slot.Tags {
		o := vote.Outcome{SlotPos: pos, Verification: verification}
		switch {
		case st == channel.Empty:
			o.Kind = vote.Absent
		case captured && tag == reading.CaptureTag:
			o.Kind = vote.Present
		case captured:
			continue
		default:
			o.Kind = vote.Ambiguous
			o.Weight = 1 / float64(k)
		}
		if err := l.agg.Record(tag, o); err != nil {
			return err
		}
	}
	return nil
}

// #endregion vote-aggregate

// #region controller-update
func (l *LodsMTI) updateController() {
	sig := l.producer.Produce(l.work.input)
	next := l.ctl.NextRho(sig)
	last := l.ctl.Last()
	l.work.stats.Noise = last.NewState.Noise

	l.log.Debugw("controller",
		logging.FieldRound, l.round,
		logging.FieldNoise, sig.Noise,
		logging.FieldRho, next,
		"action", last.Decision.Action,
	)
}

// #endregion controller-update

// #region decision-check
func (l *LodsMTI) checkDecisions() Phase {
	for _, tag := range l.work.active {
		rec, _ := l.agg.Get(tag)
		if d := l.gate.Evaluate(rec); d.Action == "finalize" {
			l.agg.Finalize(tag, d.Decision, l.round)
		}
	}

	remaining := len(l.agg.Active())
	st := &l.work.stats
	st.Finalized = l.agg.FinalizedCount()
	st.Undetermined = remaining
	st.Energy = l.energy
	st.AirtimeUs = l.airtimeUs
	if st.TotalSlots > 0 {
		resolved := 0
		for _, a := range l.work.primary.Assign {
			if !a.Forced {
				resolved++
			}
		}
		for _, a := range l.work.verify.Assign {
			if !a.Forced {
				resolved++
			}
		}
		st.Throughput = float64(resolved) / float64(st.TotalSlots)
	}

	l.log.Debugw("round complete",
		logging.FieldRound, l.round,
		logging.FieldSlots, st.TotalSlots,
		logging.FieldRho, st.Rho,
		logging.FieldCollisions, st.Collisions,
		logging.FieldFinalized, st.Finalized,
		logging.FieldUndetermined, remaining,
	)

	switch {
	case remaining == 0:
		return PhaseFinalize
	case l.round >= l.cfg.MaxRounds:
		l.timeout = true
		return PhaseFinalize
	default:
		return PhaseFrameBuild
	}
}

// #endregion decision-check

// #region finalize
func (l *LodsMTI) finalize() {
	for _, tag := range l.agg.Active() {
		l.agg.Finalize(tag, state.Undetermined, 0)
	}
}

// #endregion finalize

func contains(tags []uint64, tag uint64) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
