// Package protocol defines the boundary between a missing-tag identification
// algorithm and the simulated physical layer. Algorithms see only what a
// reader could see; ground truth stays behind Medium.
package protocol

import (
	"go.uber.org/zap"

	"github.com/danielpatrickdp/lods-sim/internal/channel"
	"github.com/danielpatrickdp/lods-sim/internal/config"
	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// #region setup
// Setup is everything an algorithm receives before its first round.
type Setup struct {
	Config config.SimulationConfig
	Tags   []uint64       // registered tag IDs, the reader's inventory
	Seed   uint64         // trial seed for deriving frame seeds
	Model  *channel.Model // for error-rate weighting only
	Logger *zap.SugaredLogger
}

// #endregion setup

// #region plan
// Plan is one frame the reader broadcasts. Addressed tags that are present
// reply in slot alloc.SlotFor(tag, Seed, Size).
type Plan struct {
	Size int
	Seed uint64
	Bits int
	Tags []uint64
}

// #endregion plan

// #region reception
// Reading is the reader-visible content of one slot.
type Reading struct {
	Ones       int
	Garbled    bool
	Captured   bool
	CaptureTag uint64
}

// State classifies the reading with the given bit-vote threshold.
func (r Reading) State(threshold int) channel.SlotState {
	return channel.Observation{Ones: r.Ones, Garbled: r.Garbled}.State(threshold)
}

// OracleStats are physical-layer counts for statistics only. Protocol
// decisions must not read them.
type OracleStats struct {
	Erased             int
	Shifted            int
	Lost               int
	Captures           int
	PhysicalCollisions int
}

// Reception is what the reader observed for one Plan.
type Reception struct {
	Size      int
	Slots     []Reading
	Energy    float64
	AirtimeUs float64
	Oracle    OracleStats
}

// #endregion reception

// #region interfaces
// Medium is the only path from an algorithm to the physical layer.
type Medium interface {
	Transmit(plan Plan) (Reception, error)
}

// Algorithm is a missing-tag identification protocol driven round by round.
type Algorithm interface {
	Initialize(setup Setup) error
	RunRound(medium Medium) (state.RoundStatistics, error)
	Done() bool
	Decisions() []state.TagDecision
}

// #endregion interfaces

// FrameTags flattens per-slot tag lists in slot order.
func FrameTags(slots [][]uint64) []uint64 {
	var out []uint64
	for _, group := range slots {
		out = append(out, group...)
	}
	return out
}
