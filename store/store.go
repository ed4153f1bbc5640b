// Package store keeps the history of model evaluation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

//go:embed sql/*
var f embed.FS

// Metrics is one model's scores within a run.
type Metrics struct {
	Model     string
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	AUC       float64
}

// Run is a stored evaluation of one model.
type Run struct {
	ID        string
	CreatedAt time.Time
	Metrics
}

// Store wraps the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, lrErrors.New("store path not specified")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, lrErrors.Wrapf(err, "failed to create dir: %s", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, lrErrors.Wrapf(err, "failed to open database: %s", path)
	}
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		_ = db.Close()
		return nil, lrErrors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := db.ExecContext(ctx, string(b)); err != nil {
		_ = db.Close()
		return nil, lrErrors.Wrapf(err, "failed to create database schema in: %s", path)
	}
	log.GetLoggerWithName("store").Debug("store opened", log.PathKey, path)
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records every model of one evaluation under a fresh run id,
// in a single transaction, and returns the id.
func (s *Store) SaveRun(ctx context.Context, results []Metrics) (string, error) {
	if len(results) == 0 {
		return "", lrErrors.NewValueError("store.SaveRun", "no results")
	}
	id := uuid.NewString()
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", lrErrors.Wrap(err, "failed to begin transaction")
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO model_runs
		(id, model, accuracy, precision, recall, f1, auc, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return "", lrErrors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, m := range results {
		if _, err := stmt.ExecContext(ctx, id, m.Model, m.Accuracy, m.Precision, m.Recall, m.F1, m.AUC, now); err != nil {
			_ = tx.Rollback()
			return "", lrErrors.Wrapf(err, "failed to insert run for %s", m.Model)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", lrErrors.Wrap(err, "failed to commit run")
	}
	log.GetLoggerWithName("store").Info("run saved", "run_id", id, "models", len(results))
	return id, nil
}

// ListRuns returns the newest rows first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, model, accuracy, precision, recall, f1, auc, created_at
		FROM model_runs ORDER BY created_at DESC, model ASC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, lrErrors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Model, &r.Accuracy, &r.Precision, &r.Recall, &r.F1, &r.AUC, &created); err != nil {
			return nil, lrErrors.Wrap(err, "failed to scan run")
		}
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, lrErrors.Wrapf(err, "bad created_at %q", created)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
