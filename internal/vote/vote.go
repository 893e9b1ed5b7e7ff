// Package vote accumulates per-tag presence evidence as a log-likelihood
// ratio weighted by the channel's decode error rates.
package vote

import (
	"math"

	"github.com/danielpatrickdp/lods-sim/internal/channel"
	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// ErrUnknownTag is returned for tags the aggregator was not built with.
var ErrUnknownTag = errors.New("unknown tag")

const (
	minErrorRate = 1e-9
	maxErrorRate = 0.5
)

// #region outcome
// Kind classifies one observation of a tag.
type Kind int

const (
	Absent    Kind = iota // slot read silent
	Present               // slot read a reply
	Ambiguous             // reply heard but not attributable to this tag alone
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Present:
		return "present"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Outcome is one observation committed for a tag.
type Outcome struct {
	Kind         Kind
	Weight       float64 // share of the Positive tally for Ambiguous, ignored otherwise
	SlotPos      int     // slot position, drives the drift-dependent error rates
	Verification bool    // came from the redundant verification frame
}

// #endregion outcome

type rates struct {
	pos, neg float64 // LLR contribution of a present and of an absent reading
}

// #region aggregator
// Aggregator holds the vote records of a trial. It is not safe for concurrent
// use; a trial runs on one goroutine.
type Aggregator struct {
	model     *channel.Model
	bits      int
	threshold int

	order   []uint64
	records map[uint64]*state.VoteRecord
	cache   map[int]rates

	// per-round bookkeeping
	roundKind     map[uint64]Kind
	pairs         int
	disagreements int
}

// New creates an aggregator for tags. bits and threshold describe the reply
// bit-vote the reader applies per slot.
func New(model *channel.Model, bits, threshold int, tags []uint64) *Aggregator {
	a := &Aggregator{
		model:     model,
		bits:      bits,
		threshold: threshold,
		order:     append([]uint64(nil), tags...),
		records:   make(map[uint64]*state.VoteRecord, len(tags)),
		cache:     make(map[int]rates),
		roundKind: make(map[uint64]Kind),
	}
	for _, tag := range tags {
		a.records[tag] = &state.VoteRecord{TagID: tag, Confidence: 0.5}
	}
	return a
}

// BeginRound clears the per-round disagreement bookkeeping.
func (a *Aggregator) BeginRound() {
	a.roundKind = make(map[uint64]Kind)
	a.pairs = 0
	a.disagreements = 0
}

// RoundDisagreements returns how many tags were observed twice this round and
// how many of those pairs conflicted.
func (a *Aggregator) RoundDisagreements() (pairs, disagreements int) {
	return a.pairs, a.disagreements
}

// Record commits an observation for tagID. Observations for finalized tags are
// ignored.
func (a *Aggregator) Record(tagID uint64, o Outcome) error {
	rec, ok := a.records[tagID]
	if !ok {
		return errors.Wrapf(ErrUnknownTag, "tag %x", tagID)
	}
	if rec.Finalized() {
		return nil
	}
	r, err := a.ratesAt(o.SlotPos)
	if err != nil {
		return err
	}

	switch o.Kind {
	case Present:
		rec.Positive++
		rec.Votes++
		rec.LLR += r.pos
	case Absent:
		rec.Negative++
		rec.Votes++
		rec.LLR += r.neg
	case Ambiguous:
		// A shared slot replies whether or not this tag does, so the
		// likelihood ratio is ~1 and the LLR is left unchanged.
		rec.Positive += clamp(o.Weight, 0, 1)
		rec.Ambiguous++
	default:
		return errors.Newf("unknown outcome kind %d", o.Kind)
	}
	rec.Confidence = logistic(rec.LLR)

	if o.Kind != Ambiguous {
		if prev, seen := a.roundKind[tagID]; seen {
			a.pairs++
			if prev != o.Kind {
				a.disagreements++
				rec.Disagreements++
			}
		} else {
			a.roundKind[tagID] = o.Kind
		}
	}
	return nil
}

// Confidence is the posterior probability that tagID is present under an even
// prior. It is monotone in the accumulated evidence.
func (a *Aggregator) Confidence(tagID uint64) float64 {
	rec, ok := a.records[tagID]
	if !ok {
		return 0.5
	}
	return rec.Confidence
}

// Finalize fixes the decision of tagID. It reports whether the call changed
// anything; finalizing an already finalized tag is a no-op.
func (a *Aggregator) Finalize(tagID uint64, d state.Decision, round int) bool {
	rec, ok := a.records[tagID]
	if !ok || rec.Finalized() {
		return false
	}
	rec.Decision = d
	rec.FinalizedRound = round
	return true
}

// Get returns a copy of the record of tagID.
func (a *Aggregator) Get(tagID uint64) (state.VoteRecord, bool) {
	rec, ok := a.records[tagID]
	if !ok {
		return state.VoteRecord{}, false
	}
	return *rec, true
}

// Active lists unfinalized tags in registration order.
func (a *Aggregator) Active() []uint64 {
	var out []uint64
	for _, tag := range a.order {
		if !a.records[tag].Finalized() {
			out = append(out, tag)
		}
	}
	return out
}

// Records returns copies of every record in registration order.
func (a *Aggregator) Records() []state.VoteRecord {
	out := make([]state.VoteRecord, 0, len(a.order))
	for _, tag := range a.order {
		out = append(out, *a.records[tag])
	}
	return out
}

// FinalizedCount returns how many tags carry a decision.
func (a *Aggregator) FinalizedCount() int {
	n := 0
	for _, rec := range a.records {
		if rec.Finalized() {
			n++
		}
	}
	return n
}

// #endregion aggregator

// #region likelihood
func (a *Aggregator) ratesAt(slotPos int) (rates, error) {
	// only drift depends on the position
	if a.model.Profile().DriftSigma == 0 {
		slotPos = 0
	}
	if r, ok := a.cache[slotPos]; ok {
		return r, nil
	}
	pMiss, pFalse, err := a.model.ErrorRates(a.bits, a.threshold, slotPos)
	if err != nil {
		return rates{}, err
	}
	pMiss = clamp(pMiss, minErrorRate, maxErrorRate)
	pFalse = clamp(pFalse, minErrorRate, maxErrorRate)
	r := rates{
		pos: math.Log((1 - pMiss) / pFalse),
		neg: math.Log(pMiss / (1 - pFalse)),
	}
	a.cache[slotPos] = r
	return r, nil
}

func logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// #endregion likelihood
