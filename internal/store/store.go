// Package store persists processed recordings and their band powers in SQLite
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/linuxmatters/eegbands/internal/processor"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	sample_rate      REAL NOT NULL,
	duration_seconds REAL NOT NULL,
	clean_seconds    REAL NOT NULL,
	channels_json    TEXT NOT NULL,
	policy           TEXT NOT NULL,
	epochs_total     INTEGER NOT NULL,
	epochs_final     INTEGER NOT NULL,
	epochs_rejected  INTEGER NOT NULL,
	rejection_rate   REAL NOT NULL,
	config_json      TEXT
);

CREATE TABLE IF NOT EXISTS band_powers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	row_index   INTEGER NOT NULL,
	epoch       INTEGER NOT NULL,
	channel     TEXT NOT NULL,
	delta_power REAL NOT NULL,
	theta_power REAL NOT NULL,
	alpha_power REAL NOT NULL,
	beta_power  REAL NOT NULL,
	gamma_power REAL NOT NULL,
	dar         REAL NOT NULL,
	tar         REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_band_powers_run ON band_powers(run_id, row_index);
`

// Store keeps processing runs in a SQLite database
type Store struct {
	db *sql.DB
}

// RunRecord is one stored processing run
type RunRecord struct {
	RunID           string
	Source          string
	CreatedAt       time.Time
	SampleRate      float64
	DurationSeconds float64 // Analysed recording length
	CleanSeconds    float64 // Signal kept after rejection
	Channels        []string
	Policy          processor.Policy
	EpochsTotal     int
	EpochsFinal     int
	EpochsRejected  int
	RejectionRate   float64
	Config          *processor.Config
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes the run summary and every result row in one transaction.
func (s *Store) SaveRun(source string, result *processor.Result) (RunRecord, error) {
	report := result.Report
	rec := RunRecord{
		RunID:           result.RunID,
		Source:          source,
		CreatedAt:       time.Now().UTC(),
		SampleRate:      report.SampleRate,
		DurationSeconds: report.RecordingDurationSeconds,
		CleanSeconds:    report.TotalDurationSeconds,
		Channels:        report.ChannelNames,
		Policy:          report.Policy,
		EpochsTotal:     report.EpochsTotal,
		EpochsFinal:     report.EpochsFinal,
		EpochsRejected:  report.EpochsRejected,
		RejectionRate:   report.RejectionRate,
		Config:          result.Config,
	}

	channelsJSON, err := json.Marshal(rec.Channels)
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal channels: %w", err)
	}
	var configJSON []byte
	if rec.Config != nil {
		if configJSON, err = json.Marshal(rec.Config); err != nil {
			return RunRecord{}, fmt.Errorf("marshal config: %w", err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return RunRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, source, created_at, sample_rate, duration_seconds, clean_seconds,
		   channels_json, policy, epochs_total, epochs_final, epochs_rejected, rejection_rate, config_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Source, rec.CreatedAt.Format(time.RFC3339Nano), rec.SampleRate, rec.DurationSeconds,
		rec.CleanSeconds, string(channelsJSON), string(rec.Policy), rec.EpochsTotal, rec.EpochsFinal, rec.EpochsRejected,
		rec.RejectionRate, string(configJSON),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO band_powers (run_id, row_index, epoch, channel,
		   delta_power, theta_power, alpha_power, beta_power, gamma_power, dar, tar)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("prepare band powers: %w", err)
	}
	defer stmt.Close()

	for i, r := range result.Records {
		if _, err := stmt.Exec(rec.RunID, i, r.Epoch, r.Channel,
			r.Delta, r.Theta, r.Alpha, r.Beta, r.Gamma, r.DAR, r.TAR); err != nil {
			return RunRecord{}, fmt.Errorf("insert band powers row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// Records returns the stored result rows of a run in their original order.
func (s *Store) Records(runID string) ([]processor.ResultRecord, error) {
	rows, err := s.db.Query(
		`SELECT epoch, channel, delta_power, theta_power, alpha_power, beta_power, gamma_power, dar, tar
		 FROM band_powers WHERE run_id = ? ORDER BY row_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query band powers: %w", err)
	}
	defer rows.Close()

	var out []processor.ResultRecord
	for rows.Next() {
		var r processor.ResultRecord
		if err := rows.Scan(&r.Epoch, &r.Channel, &r.Delta, &r.Theta, &r.Alpha, &r.Beta, &r.Gamma, &r.DAR, &r.TAR); err != nil {
			return nil, fmt.Errorf("scan band powers: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChannelAlphaMeans returns the mean alpha power per channel across every
// stored run of source, for tracking a subject over sessions.
func (s *Store) ChannelAlphaMeans(source string) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT b.channel, AVG(b.alpha_power)
		 FROM band_powers b JOIN runs r ON r.run_id = b.run_id
		 WHERE r.source = ?
		 GROUP BY b.channel`,
		source,
	)
	if err != nil {
		return nil, fmt.Errorf("query alpha means: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var channel string
		var mean float64
		if err := rows.Scan(&channel, &mean); err != nil {
			return nil, fmt.Errorf("scan alpha means: %w", err)
		}
		out[channel] = mean
	}
	return out, rows.Err()
}
