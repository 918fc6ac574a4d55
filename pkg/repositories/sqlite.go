package repositories

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	type TEXT NOT NULL,
	world TEXT NOT NULL,
	player_id TEXT NOT NULL,
	username TEXT NOT NULL,
	detail BLOB
);
`

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at path and ensures the schema.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) RecordEvent(ctx context.Context, event Event) error {
	q := `
	INSERT INTO events (timestamp, type, world, player_id, username, detail)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q,
		event.Timestamp, string(event.Type), event.World, event.PlayerID, event.Username,
		compressDetail(event.Detail))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	q := `
	SELECT timestamp, type, world, player_id, username, detail
	FROM events ORDER BY id DESC LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var blob []byte
		if err := rows.Scan(&event.Timestamp, &event.Type, &event.World, &event.PlayerID, &event.Username, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		detail, err := decompressDetail(blob)
		if err != nil {
			return nil, err
		}
		event.Detail = detail
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

func (r *SQLiteRepository) Close(_ context.Context) error {
	return r.db.Close()
}
