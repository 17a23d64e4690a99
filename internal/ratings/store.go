// Package ratings persists user feedback on recommendations: for a viewed
// document and a recommended document, an integer relevance score and the
// reporter who submitted it. The store is append-mostly and consumed
// read-only by the evaluator.
package ratings

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// Rating is one feedback tuple. DocID and RecommendationID are positional
// corpus indices; at most one rating exists per (DocID, RecommendationID)
// pair.
type Rating struct {
	DocID            int
	RecommendationID int
	Value            int
	Reporter         string
}

const schema = `
CREATE TABLE IF NOT EXISTS rating (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id INTEGER NOT NULL,
	recommendation_id INTEGER NOT NULL,
	value INTEGER NOT NULL,
	reporter TEXT NOT NULL,
	UNIQUE (doc_id, recommendation_id)
)`

// Store is a SQLite-backed rating store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the rating database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open rating database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create rating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a rating, replacing any earlier value for the same
// (document, recommendation) pair so the uniqueness invariant holds.
func (s *Store) Record(ctx context.Context, r Rating) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rating (doc_id, recommendation_id, value, reporter)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (doc_id, recommendation_id)
		DO UPDATE SET value = excluded.value, reporter = excluded.reporter`,
		r.DocID, r.RecommendationID, r.Value, r.Reporter)
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	return nil
}

// All returns every stored rating.
func (s *Store) All(ctx context.Context) ([]Rating, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, recommendation_id, value, reporter FROM rating ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var out []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.DocID, &r.RecommendationID, &r.Value, &r.Reporter); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}
	return out, nil
}
