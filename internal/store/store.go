// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/verte-zerg/wheelpoke/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrRunNotFound is returned when a run id matches no stored run.
var ErrRunNotFound = errors.New("run not found")

const (
	lockRetry = 50 * time.Millisecond
	// Fixed width keeps created_at lexically ordered.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store wraps SQLite access for analysis results.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, lock: flock.New(path + ".lock")}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			files INTEGER NOT NULL,
			failed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			path TEXT NOT NULL,
			identifier TEXT NOT NULL,
			drive_id INTEGER NOT NULL,
			preset TEXT NOT NULL,
			appearances INTEGER NOT NULL,
			poke_events INTEGER NOT NULL,
			rotations INTEGER NOT NULL,
			dropped_rotations INTEGER NOT NULL,
			ambiguous_pokes INTEGER NOT NULL,
			error TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS image_stats (
			file_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			contrast INTEGER NOT NULL,
			appearances INTEGER NOT NULL,
			hits INTEGER NOT NULL,
			true_mean REAL,
			true_sem REAL,
			true_sd REAL,
			all_mean REAL,
			all_sem REAL,
			all_sd REAL,
			rpm_mean REAL,
			rpm_count INTEGER NOT NULL,
			PRIMARY KEY (file_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS latencies (
			file_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			time REAL NOT NULL,
			image TEXT NOT NULL,
			contrast INTEGER NOT NULL,
			latency REAL NOT NULL,
			reward_seq INTEGER NOT NULL,
			timed_out INTEGER NOT NULL,
			PRIMARY KEY (file_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS rotations (
			file_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			image TEXT NOT NULL,
			contrast INTEGER NOT NULL,
			start_time REAL NOT NULL,
			avg_speed REAL NOT NULL,
			PRIMARY KEY (file_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a batch run and its files in one transaction while holding
// the database lock file. Missing run ids and timestamps are filled in; the
// stored run id is returned.
func (s *Store) InsertRun(ctx context.Context, run model.RunSummary, files []model.FileRecord) (string, error) {
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return "", fmt.Errorf("lock %s: not acquired", s.lock.Path())
	}
	defer func() {
		if uerr := s.lock.Unlock(); uerr != nil {
			// Best-effort unlock.
			_ = uerr
		}
	}()

	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.Files = len(files)
	run.Failed = 0
	for _, f := range files {
		if f.Summary.Err != "" {
			run.Failed++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, files, failed) VALUES (?, ?, ?, ?)`,
		run.RunID, run.CreatedAt.UTC().Format(timeLayout), run.Files, run.Failed,
	); err != nil {
		return "", err
	}
	for _, f := range files {
		if err = insertFile(ctx, tx, run.RunID, f); err != nil {
			return "", err
		}
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	return run.RunID, nil
}

func insertFile(ctx context.Context, tx *sql.Tx, runID string, f model.FileRecord) error {
	fs := f.Summary
	res, err := tx.ExecContext(ctx,
		`INSERT INTO files (run_id, path, identifier, drive_id, preset, appearances, poke_events, rotations, dropped_rotations, ambiguous_pokes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, fs.Path, fs.Identifier, fs.DriveID, fs.Preset.String(), fs.Appearances,
		fs.PokeEvents, fs.Rotations, fs.DroppedRotations, fs.AmbiguousPokes, fs.Err,
	)
	if err != nil {
		return err
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, im := range f.Images {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO image_stats (file_id, name, type, contrast, appearances, hits, true_mean, true_sem, true_sd, all_mean, all_sem, all_sd, rpm_mean, rpm_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, im.Name, im.Type.String(), im.Contrast, im.Appearances, im.Hits,
			nullable(im.TrueMean), nullable(im.TrueSEM), nullable(im.TrueSD),
			nullable(im.AllMean), nullable(im.AllSEM), nullable(im.AllSD),
			nullable(im.RPMMean), im.RPMCount,
		); err != nil {
			return err
		}
	}

	if len(f.Latencies) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO latencies (file_id, seq, time, image, contrast, latency, reward_seq, timed_out)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer closeStmt(stmt)
		for i, rec := range f.Latencies {
			if _, err := stmt.ExecContext(ctx, fileID, i, rec.Time, rec.Image, rec.Contrast, rec.Latency, rec.RewardSeq, rec.TimedOut); err != nil {
				return err
			}
		}
	}

	if len(f.Rotations) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO rotations (file_id, seq, image, contrast, start_time, avg_speed)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer closeStmt(stmt)
		for i, rec := range f.Rotations {
			if _, err := stmt.ExecContext(ctx, fileID, i, rec.Image, rec.Contrast, rec.StartTime, rec.AvgSpeed); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListRuns returns stored runs, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, files, failed FROM runs ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var runs []model.RunSummary
	for rows.Next() {
		var run model.RunSummary
		var createdAt string
		if err := rows.Scan(&run.RunID, &createdAt, &run.Files, &run.Failed); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, err
		}
		run.CreatedAt = parsed
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (model.RunSummary, error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return model.RunSummary{}, err
	}
	if len(runs) == 0 {
		return model.RunSummary{}, ErrRunNotFound
	}
	return runs[len(runs)-1], nil
}

// GetRun looks up one run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (model.RunSummary, error) {
	var run model.RunSummary
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, files, failed FROM runs WHERE id = ?`, runID,
	).Scan(&run.RunID, &createdAt, &run.Files, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return model.RunSummary{}, err
	}
	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.RunSummary{}, err
	}
	return run, nil
}

// ListFiles returns the files of a run in insertion order.
func (s *Store) ListFiles(ctx context.Context, runID string) ([]model.FileSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, identifier, drive_id, preset, appearances, poke_events, rotations, dropped_rotations, ambiguous_pokes, error
		 FROM files WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var files []model.FileSummary
	for rows.Next() {
		var fs model.FileSummary
		var preset string
		if err := rows.Scan(&fs.FileID, &fs.Path, &fs.Identifier, &fs.DriveID, &preset, &fs.Appearances,
			&fs.PokeEvents, &fs.Rotations, &fs.DroppedRotations, &fs.AmbiguousPokes, &fs.Err); err != nil {
			return nil, err
		}
		fs.Preset = model.ParsePreset(preset)
		files = append(files, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// ListImageStats returns per-image figures of a file in insertion order.
func (s *Store) ListImageStats(ctx context.Context, fileID int64) ([]model.ImageStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type, contrast, appearances, hits, true_mean, true_sem, true_sd, all_mean, all_sem, all_sd, rpm_mean, rpm_count
		 FROM image_stats WHERE file_id = ? ORDER BY rowid ASC`, fileID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.ImageStats
	for rows.Next() {
		var im model.ImageStats
		var typ string
		var floats [7]sql.NullFloat64
		if err := rows.Scan(&im.Name, &typ, &im.Contrast, &im.Appearances, &im.Hits,
			&floats[0], &floats[1], &floats[2], &floats[3], &floats[4], &floats[5], &floats[6],
			&im.RPMCount); err != nil {
			return nil, err
		}
		im.Type, _ = model.ParseImageType(typ)
		im.TrueMean, im.TrueSEM, im.TrueSD = orNaN(floats[0]), orNaN(floats[1]), orNaN(floats[2])
		im.AllMean, im.AllSEM, im.AllSD = orNaN(floats[3]), orNaN(floats[4]), orNaN(floats[5])
		im.RPMMean = orNaN(floats[6])
		result = append(result, im)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLatencies returns the latency listing of a file in appearance order.
func (s *Store) ListLatencies(ctx context.Context, fileID int64) ([]model.LatencyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, image, contrast, latency, reward_seq, timed_out
		 FROM latencies WHERE file_id = ? ORDER BY seq ASC`, fileID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.LatencyRecord
	for rows.Next() {
		var rec model.LatencyRecord
		if err := rows.Scan(&rec.Time, &rec.Image, &rec.Contrast, &rec.Latency, &rec.RewardSeq, &rec.TimedOut); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListRotations returns the rotation intervals of a file in time order.
func (s *Store) ListRotations(ctx context.Context, fileID int64) ([]model.RotationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT image, contrast, start_time, avg_speed
		 FROM rotations WHERE file_id = ? ORDER BY seq ASC`, fileID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.RotationRecord
	for rows.Next() {
		var rec model.RotationRecord
		if err := rows.Scan(&rec.Image, &rec.Contrast, &rec.StartTime, &rec.AvgSpeed); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// NaN is not representable in SQLite and is stored as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

func closeStmt(stmt *sql.Stmt) {
	if cerr := stmt.Close(); cerr != nil {
		// Best-effort statement close.
		_ = cerr
	}
}
