package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"spiraldemo/ml"
)

// Store persists accuracy evaluations in SQLite.
type Store struct {
	database *sql.DB
}

// EvaluationRecord is one stored evaluation.
type EvaluationRecord struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	Predictions []int     `json:"predictions"`
	Matches     []bool    `json:"matches"`
	Accuracy    float64   `json:"accuracy"`
	Loss        float64   `json:"loss"`
	Samples     int       `json:"samples"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS evaluations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source TEXT NOT NULL,
        predictions TEXT NOT NULL,
        matches TEXT NOT NULL,
        accuracy REAL NOT NULL,
        loss REAL DEFAULT 0,
        samples INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{database: database}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.database.Close()
}

// SaveEvaluation stores an evaluation tagged with the source that produced it.
func (s *Store) SaveEvaluation(ctx context.Context, source string, eval ml.Evaluation, loss float64) (int64, error) {
	if source == "" {
		return 0, errors.New("source required")
	}
	if len(eval.Predictions) != len(eval.Matches) {
		return 0, errors.New("predictions/matches length mismatch")
	}
	predictions, err := json.Marshal(eval.Predictions)
	if err != nil {
		return 0, err
	}
	matches, err := json.Marshal(eval.Matches)
	if err != nil {
		return 0, err
	}

	res, err := s.database.ExecContext(ctx, `
        INSERT INTO evaluations (source, predictions, matches, accuracy, loss, samples, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		source, string(predictions), string(matches), eval.Accuracy, loss, len(eval.Predictions), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentEvaluations returns up to limit evaluations, newest first.
func (s *Store) RecentEvaluations(ctx context.Context, limit int) ([]EvaluationRecord, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT id, source, predictions, matches, accuracy, loss, samples, created_at
        FROM evaluations
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]EvaluationRecord, 0)
	for rows.Next() {
		var r EvaluationRecord
		var predictions, matches string
		var loss sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Source, &predictions, &matches, &r.Accuracy, &loss, &r.Samples, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(predictions), &r.Predictions); err != nil {
			return nil, fmt.Errorf("decode predictions of evaluation %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(matches), &r.Matches); err != nil {
			return nil, fmt.Errorf("decode matches of evaluation %d: %w", r.ID, err)
		}
		if loss.Valid {
			r.Loss = loss.Float64
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
