package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/ntphong404/rasa-control/internal/history"
)

// Sink sends training run records to ClickHouse using the official client.
type Sink struct {
	conn  driver.Conn
	table string
}

func New(addr, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &Sink{conn: conn, table: table}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		model_name String,
		model_file String,
		status String,
		started_at DateTime64(3),
		finished_at DateTime64(3),
		error String,
		uploaded UInt8,
		model_url String
	) ENGINE = MergeTree() ORDER BY finished_at`, s.table)
	return s.conn.Exec(ctx, stmt)
}

func (s *Sink) Append(ctx context.Context, r history.Record) error {
	query := fmt.Sprintf(`INSERT INTO %s (model_name, model_file, status, started_at, finished_at, error, uploaded, model_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	uploaded := uint8(0)
	if r.Uploaded {
		uploaded = 1
	}
	if err := s.conn.Exec(ctx, query,
		r.ModelName, r.ModelFile, r.Status, r.StartedAt, r.FinishedAt, r.Error, uploaded, r.ModelURL,
	); err != nil {
		return fmt.Errorf("failed to insert record into ClickHouse: %w", err)
	}
	return nil
}

func (s *Sink) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT model_name, model_file, status, started_at, finished_at, error, uploaded, model_url
		FROM %s ORDER BY finished_at DESC LIMIT %d`, s.table, limit)
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []history.Record
	for rows.Next() {
		var r history.Record
		var uploaded uint8
		if err := rows.Scan(&r.ModelName, &r.ModelFile, &r.Status, &r.StartedAt, &r.FinishedAt, &r.Error, &uploaded, &r.ModelURL); err != nil {
			return nil, err
		}
		r.Uploaded = uploaded != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
