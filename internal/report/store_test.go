package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/lods-sim/internal/state"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func trial(id, algo string, seed uint64, recall float64, failure string) TrialRecord {
	return TrialRecord{
		TrialID:   id,
		Algorithm: algo,
		Seed:      seed,
		Recall:    recall,
		Failure:   failure,
		Rounds: []state.RoundStatistics{
			{Round: 1, FrameSize: 128, TotalSlots: 140, Rho: 1, Energy: 10, AirtimeUs: 1000},
			{Round: 2, FrameSize: 64, TotalSlots: 70, Rho: 0.8, Energy: 15, AirtimeUs: 1600},
		},
		Decisions: []state.TagDecision{
			{TagID: 0xE200001D45000000, Decision: state.PresentConfirmed, Confidence: 0.99, Votes: 2, Round: 2},
			{TagID: 0xE200001D45000001, Decision: state.MissingConfirmed, Confidence: 0.01, Votes: 2, Round: 2},
			{TagID: 0xE200001D45000002, Decision: state.Undetermined, Confidence: 0.5},
		},
	}
}

// #region record
func TestRecordAndReadRounds(t *testing.T) {
	s := memStore(t)
	require.NoError(t, s.RecordTrial(trial("t1", "lods-mti", 1, 1, "")))

	rounds, err := s.Rounds("t1")
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 2, rounds[1].Round)
	assert.Equal(t, 0.8, rounds[1].Rho)

	counts, err := s.DecisionCounts("t1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[state.PresentConfirmed])
	assert.Equal(t, 1, counts[state.MissingConfirmed])
	assert.Equal(t, 1, counts[state.Undetermined])
}

func TestRecordDuplicateTrialFails(t *testing.T) {
	s := memStore(t)
	require.NoError(t, s.RecordTrial(trial("t1", "lods-mti", 1, 1, "")))
	assert.Error(t, s.RecordTrial(trial("t1", "lods-mti", 1, 1, "")))

	// the failed insert rolled back entirely
	rounds, err := s.Rounds("t1")
	require.NoError(t, err)
	assert.Len(t, rounds, 2)
}

// #endregion record

// #region summary
func TestSummarizeByAlgorithm(t *testing.T) {
	s := memStore(t)
	require.NoError(t, s.RecordTrial(trial("a", "lods-mti", 1, 1.0, "")))
	require.NoError(t, s.RecordTrial(trial("b", "lods-mti", 2, 0.9, "")))
	require.NoError(t, s.RecordTrial(trial("c", "lods-mti", 3, 0, "channel model diverged")))
	require.NoError(t, s.RecordTrial(trial("d", "cr-mti", 4, 0.8, "")))

	sums, err := s.SummarizeByAlgorithm()
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, "cr-mti", sums[0].Algorithm)
	assert.Equal(t, 1, sums[0].Trials)

	lods := sums[1]
	assert.Equal(t, "lods-mti", lods.Algorithm)
	assert.Equal(t, 3, lods.Trials)
	assert.Equal(t, 1, lods.Failed)
	assert.InDelta(t, 0.95, lods.MeanRecall, 1e-9)
	assert.InDelta(t, 2, lods.MeanRounds, 1e-9)
	assert.InDelta(t, 15, lods.MeanEnergy, 1e-9)
	assert.InDelta(t, 1, lods.MeanUndetermined, 1e-9)
}

func TestFailuresCarrySeed(t *testing.T) {
	s := memStore(t)
	require.NoError(t, s.RecordTrial(trial("ok", "lods-mti", 1, 1, "")))
	require.NoError(t, s.RecordTrial(trial("bad", "lods-mti", 0xDEADBEEFCAFEF00D, 0, "forced resolution budget exceeded")))

	fails, err := s.Failures()
	require.NoError(t, err)
	require.Len(t, fails, 1)
	assert.Equal(t, "bad", fails[0].TrialID)
	assert.Equal(t, uint64(0xDEADBEEFCAFEF00D), fails[0].Seed)
	assert.Contains(t, fails[0].Reason, "budget")
}

// #endregion summary

func TestNewStoreFile(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	defer s.Close()
	assert.NotNil(t, s.DB())
}
