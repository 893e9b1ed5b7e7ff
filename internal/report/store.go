// Package report aggregates trial results in SQLite so batch runs can be
// summarized per algorithm with plain SQL.
package report

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/lods-sim/internal/errors"
	"github.com/danielpatrickdp/lods-sim/internal/state"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS trials (
	trial_id      TEXT PRIMARY KEY,
	algorithm     TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	rounds        INTEGER NOT NULL,
	recall        REAL NOT NULL,
	fpr           REAL NOT NULL,
	energy        REAL NOT NULL,
	airtime_us    REAL NOT NULL,
	undetermined  INTEGER NOT NULL,
	timeout       INTEGER NOT NULL,
	failure       TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rounds (
	trial_id      TEXT NOT NULL,
	round         INTEGER NOT NULL,
	frame_size    INTEGER NOT NULL,
	total_slots   INTEGER NOT NULL,
	rho           REAL NOT NULL,
	verify_tags   INTEGER NOT NULL,
	collisions    INTEGER NOT NULL,
	phantoms      INTEGER NOT NULL,
	erasures      INTEGER NOT NULL,
	forced        INTEGER NOT NULL,
	splits        INTEGER NOT NULL,
	throughput    REAL NOT NULL,
	energy        REAL NOT NULL,
	airtime_us    REAL NOT NULL,
	recall        REAL NOT NULL,
	fpr           REAL NOT NULL,
	finalized     INTEGER NOT NULL,
	undetermined  INTEGER NOT NULL,
	noise         REAL NOT NULL,
	PRIMARY KEY (trial_id, round),
	FOREIGN KEY (trial_id) REFERENCES trials(trial_id)
);

CREATE TABLE IF NOT EXISTS decisions (
	trial_id      TEXT NOT NULL,
	tag_id        INTEGER NOT NULL,
	decision      TEXT NOT NULL,
	confidence    REAL NOT NULL,
	votes         INTEGER NOT NULL,
	round         INTEGER NOT NULL,
	PRIMARY KEY (trial_id, tag_id),
	FOREIGN KEY (trial_id) REFERENCES trials(trial_id)
);
`

// #endregion schema

// #region types
// TrialRecord is one finished trial as stored.
type TrialRecord struct {
	TrialID           string
	Algorithm         string
	Seed              uint64
	Recall            float64
	FalsePositiveRate float64
	Timeout           bool
	Failure           string
	Rounds            []state.RoundStatistics
	Decisions         []state.TagDecision
	CreatedAt         time.Time
}

// AlgorithmSummary holds per-algorithm means over trials that did not fail.
type AlgorithmSummary struct {
	Algorithm        string  `json:"algorithm" yaml:"algorithm"`
	Trials           int     `json:"trials" yaml:"trials"`
	Failed           int     `json:"failed" yaml:"failed"`
	Timeouts         int     `json:"timeouts" yaml:"timeouts"`
	MeanRecall       float64 `json:"mean_recall" yaml:"mean_recall"`
	MeanFPR          float64 `json:"mean_false_positive_rate" yaml:"mean_false_positive_rate"`
	MeanRounds       float64 `json:"mean_rounds" yaml:"mean_rounds"`
	MeanEnergy       float64 `json:"mean_energy" yaml:"mean_energy"`
	MeanAirtimeUs    float64 `json:"mean_airtime_us" yaml:"mean_airtime_us"`
	MeanUndetermined float64 `json:"mean_undetermined" yaml:"mean_undetermined"`
}

// Failure identifies a failed trial so it can be rerun from its seed.
type Failure struct {
	TrialID   string `json:"trial_id" yaml:"trial_id"`
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	Seed      uint64 `json:"seed" yaml:"seed"`
	Reason    string `json:"reason" yaml:"reason"`
}

// #endregion types

// #region store
// Store manages trial results in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations. An empty path opens a
// private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pragma fk")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region record
// RecordTrial stores a trial with its rounds and decisions atomically.
func (s *Store) RecordTrial(rec TrialRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var last state.RoundStatistics
	if n := len(rec.Rounds); n > 0 {
		last = rec.Rounds[n-1]
	}
	undetermined := 0
	for _, d := range rec.Decisions {
		if d.Decision == state.Undetermined {
			undetermined++
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO trials (trial_id, algorithm, seed, rounds, recall, fpr, energy, airtime_us,
		                     undetermined, timeout, failure, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TrialID, rec.Algorithm, int64(rec.Seed), len(rec.Rounds), rec.Recall, rec.FalsePositiveRate,
		last.Energy, last.AirtimeUs, undetermined, boolToInt(rec.Timeout), rec.Failure,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrapf(err, "insert trial %s", rec.TrialID)
	}

	for _, r := range rec.Rounds {
		_, err = tx.Exec(
			`INSERT INTO rounds (trial_id, round, frame_size, total_slots, rho, verify_tags, collisions,
			                     phantoms, erasures, forced, splits, throughput, energy, airtime_us,
			                     recall, fpr, finalized, undetermined, noise)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.TrialID, r.Round, r.FrameSize, r.TotalSlots, r.Rho, r.VerifyTags, r.Collisions,
			r.PhantomCollisions, r.Erasures, r.Forced, r.Splits, r.Throughput, r.Energy, r.AirtimeUs,
			r.Recall, r.FalsePositiveRate, r.Finalized, r.Undetermined, r.Noise,
		)
		if err != nil {
			return errors.Wrapf(err, "insert round %d", r.Round)
		}
	}

	for _, d := range rec.Decisions {
		_, err = tx.Exec(
			`INSERT INTO decisions (trial_id, tag_id, decision, confidence, votes, round)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.TrialID, int64(d.TagID), string(d.Decision), d.Confidence, d.Votes, d.Round,
		)
		if err != nil {
			return errors.Wrapf(err, "insert decision %d", d.TagID)
		}
	}

	return tx.Commit()
}

// #endregion record

// #region queries
// SummarizeByAlgorithm returns one summary per algorithm, ordered by name.
func (s *Store) SummarizeByAlgorithm() ([]AlgorithmSummary, error) {
	rows, err := s.db.Query(`
		SELECT algorithm,
		       COUNT(*),
		       SUM(CASE WHEN failure != '' THEN 1 ELSE 0 END),
		       SUM(timeout),
		       COALESCE(AVG(CASE WHEN failure = '' THEN recall END), 0),
		       COALESCE(AVG(CASE WHEN failure = '' THEN fpr END), 0),
		       COALESCE(AVG(CASE WHEN failure = '' THEN rounds END), 0),
		       COALESCE(AVG(CASE WHEN failure = '' THEN energy END), 0),
		       COALESCE(AVG(CASE WHEN failure = '' THEN airtime_us END), 0),
		       COALESCE(AVG(CASE WHEN failure = '' THEN undetermined END), 0)
		FROM trials
		GROUP BY algorithm
		ORDER BY algorithm`)
	if err != nil {
		return nil, errors.Wrap(err, "summarize")
	}
	defer rows.Close()

	var out []AlgorithmSummary
	for rows.Next() {
		var a AlgorithmSummary
		if err := rows.Scan(&a.Algorithm, &a.Trials, &a.Failed, &a.Timeouts, &a.MeanRecall, &a.MeanFPR,
			&a.MeanRounds, &a.MeanEnergy, &a.MeanAirtimeUs, &a.MeanUndetermined); err != nil {
			return nil, errors.Wrap(err, "scan summary")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Failures lists failed trials ordered by algorithm and seed.
func (s *Store) Failures() ([]Failure, error) {
	rows, err := s.db.Query(
		`SELECT trial_id, algorithm, seed, failure FROM trials
		 WHERE failure != '' ORDER BY algorithm, seed`)
	if err != nil {
		return nil, errors.Wrap(err, "list failures")
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var seed int64
		if err := rows.Scan(&f.TrialID, &f.Algorithm, &seed, &f.Reason); err != nil {
			return nil, errors.Wrap(err, "scan failure")
		}
		f.Seed = uint64(seed)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Rounds returns the stored round statistics of a trial in order.
func (s *Store) Rounds(trialID string) ([]state.RoundStatistics, error) {
	rows, err := s.db.Query(
		`SELECT round, frame_size, total_slots, rho, verify_tags, collisions, phantoms, erasures,
		        forced, splits, throughput, energy, airtime_us, recall, fpr, finalized,
		        undetermined, noise
		 FROM rounds WHERE trial_id = ? ORDER BY round`, trialID)
	if err != nil {
		return nil, errors.Wrapf(err, "rounds for %s", trialID)
	}
	defer rows.Close()

	var out []state.RoundStatistics
	for rows.Next() {
		var r state.RoundStatistics
		if err := rows.Scan(&r.Round, &r.FrameSize, &r.TotalSlots, &r.Rho, &r.VerifyTags, &r.Collisions,
			&r.PhantomCollisions, &r.Erasures, &r.Forced, &r.Splits, &r.Throughput, &r.Energy,
			&r.AirtimeUs, &r.Recall, &r.FalsePositiveRate, &r.Finalized, &r.Undetermined,
			&r.Noise); err != nil {
			return nil, errors.Wrap(err, "scan round")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DecisionCounts tallies a trial's decisions by kind.
func (s *Store) DecisionCounts(trialID string) (map[state.Decision]int, error) {
	rows, err := s.db.Query(
		`SELECT decision, COUNT(*) FROM decisions WHERE trial_id = ? GROUP BY decision`, trialID)
	if err != nil {
		return nil, errors.Wrapf(err, "decision counts for %s", trialID)
	}
	defer rows.Close()

	out := make(map[state.Decision]int)
	for rows.Next() {
		var d string
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, errors.Wrap(err, "scan decision count")
		}
		out[state.Decision(d)] = n
	}
	return out, rows.Err()
}

// #endregion queries

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
