package engine

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/lods-sim/internal/eval"
)

// TagIDBase is the EPC-style prefix of generated tag IDs.
const TagIDBase uint64 = 0xE200001D45000000

// Received power range of a tag at the reader, dBm.
const (
	minPowerDbm = -80.0
	maxPowerDbm = -40.0
)

// Population is the registered tag set with its ground truth. Only the Air
// medium and the oracle read presence.
type Population struct {
	Tags    []uint64
	present map[uint64]bool
	power   map[uint64]float64
}

// NewPopulation generates n tags, marks missing of them absent by a seeded
// shuffle and draws each tag's received power.
func NewPopulation(n, missing int, rng *rand.Rand) *Population {
	p := &Population{
		Tags:    make([]uint64, n),
		present: make(map[uint64]bool, n),
		power:   make(map[uint64]float64, n),
	}
	for i := 0; i < n; i++ {
		tag := TagIDBase + uint64(i)
		p.Tags[i] = tag
		p.present[tag] = true
		p.power[tag] = minPowerDbm + (maxPowerDbm-minPowerDbm)*rng.Float64()
	}
	for _, i := range rng.Perm(n)[:missing] {
		p.present[p.Tags[i]] = false
	}
	return p
}

// Present reports whether tag is physically in range.
func (p *Population) Present(tag uint64) bool {
	return p.present[tag]
}

// PowerDbm is the received power of tag.
func (p *Population) PowerDbm(tag uint64) float64 {
	return p.power[tag]
}

// Missing returns the absent tags in registration order.
func (p *Population) Missing() []uint64 {
	var out []uint64
	for _, tag := range p.Tags {
		if !p.present[tag] {
			out = append(out, tag)
		}
	}
	return out
}

// Truth returns the ground truth for scoring.
func (p *Population) Truth() eval.GroundTruth {
	truth := make(eval.GroundTruth, len(p.Tags))
	for _, tag := range p.Tags {
		truth[tag] = p.present[tag]
	}
	return truth
}
