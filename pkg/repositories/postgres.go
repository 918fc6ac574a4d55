package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	timestamp BIGINT NOT NULL,
	type TEXT NOT NULL,
	world TEXT NOT NULL,
	player_id TEXT NOT NULL,
	username TEXT NOT NULL,
	detail BYTEA
);
`

type PostgresRepository struct {
	conn *pgx.Conn
}

// NewPostgresRepository connects to the database and ensures the schema.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func (r *PostgresRepository) RecordEvent(ctx context.Context, event Event) error {
	q := `
	INSERT INTO events (timestamp, type, world, player_id, username, detail)
	VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.conn.Exec(ctx, q,
		event.Timestamp, string(event.Type), event.World, event.PlayerID, event.Username,
		compressDetail(event.Detail))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	q := `
	SELECT timestamp, type, world, player_id, username, detail
	FROM events ORDER BY id DESC LIMIT $1;
	`
	rows, err := r.conn.Query(ctx, q, limit)
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

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}
