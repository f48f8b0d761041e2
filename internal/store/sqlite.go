package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/waterlogd/waterlog/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id         TEXT PRIMARY KEY,
	timestamp  INTEGER NOT NULL,
	value      REAL NOT NULL,
	confidence TEXT,
	notes      TEXT,
	image      TEXT,
	attributes TEXT
);
CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);
`

// SQLiteStore implements ReadingStore on a single-file SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and, if needed, initializes) a SQLite reading store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddReading inserts a reading, assigning an id when none is set
func (s *SQLiteStore) AddReading(ctx context.Context, r *types.Reading) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	attrs, err := encodeAttributes(r.Attributes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO readings (id, timestamp, value, confidence, notes, image, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Timestamp.UnixNano(), r.Value,
		nullString(string(r.Confidence)), nullString(r.Notes), nullString(r.Image), attrs)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// UpdateReading replaces the stored row for r.ID
func (s *SQLiteStore) UpdateReading(ctx context.Context, r *types.Reading) error {
	attrs, err := encodeAttributes(r.Attributes)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE readings
		SET timestamp = ?, value = ?, confidence = ?, notes = ?, image = ?, attributes = ?
		WHERE id = ?
	`, r.Timestamp.UnixNano(), r.Value,
		nullString(string(r.Confidence)), nullString(r.Notes), nullString(r.Image), attrs, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update reading: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReading removes a reading by id
func (s *SQLiteStore) DeleteReading(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReading returns a single reading by id
func (s *SQLiteStore) GetReading(ctx context.Context, id string) (*types.Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, value, confidence, notes, image, attributes
		FROM readings WHERE id = ?
	`, id)

	r, err := scanReading(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// ListReadings returns all readings in chronological order. rowid breaks
// timestamp ties so insertion order is preserved.
func (s *SQLiteStore) ListReadings(ctx context.Context) ([]types.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, value, confidence, notes, image, attributes
		FROM readings ORDER BY timestamp, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []types.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *r)
	}
	return readings, rows.Err()
}

// LatestReading returns the most recent reading, ErrNotFound when empty
func (s *SQLiteStore) LatestReading(ctx context.Context) (*types.Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, value, confidence, notes, image, attributes
		FROM readings ORDER BY timestamp DESC, rowid DESC LIMIT 1
	`)

	r, err := scanReading(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*types.Reading, error) {
	var r types.Reading
	var ts int64
	var confidence, notes, image, attrs sql.NullString

	if err := row.Scan(&r.ID, &ts, &r.Value, &confidence, &notes, &image, &attrs); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan reading row: %w", err)
	}

	r.Timestamp = time.Unix(0, ts).UTC()
	if confidence.Valid {
		r.Confidence = types.Confidence(confidence.String)
	}
	if notes.Valid {
		r.Notes = notes.String
	}
	if image.Valid {
		r.Image = image.String
	}
	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &r.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode reading attributes: %w", err)
		}
	}

	return &r, nil
}

func encodeAttributes(attrs map[string]string) (sql.NullString, error) {
	if len(attrs) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode reading attributes: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
