package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ntphong404/rasa-control/internal/history"
)

// Sink writes training run records to a SQLite database.
type Sink struct {
	db *sql.DB
}

// New creates a new SQLite history sink.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	sink := &Sink{db: db}
	if err := sink.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return sink, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS training_history(
		model_name TEXT NOT NULL,
		model_file TEXT,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		error TEXT,
		uploaded INTEGER NOT NULL DEFAULT 0,
		model_url TEXT
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Sink) Append(ctx context.Context, r history.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_history(model_name, model_file, status, started_at, finished_at, error, uploaded, model_url)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?);`,
		r.ModelName, r.ModelFile, r.Status, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Error, boolToInt(r.Uploaded), r.ModelURL)
	return err
}

func (s *Sink) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_name, model_file, status, started_at, finished_at, error, uploaded, model_url
		FROM training_history ORDER BY finished_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []history.Record
	for rows.Next() {
		var r history.Record
		var modelFile, errMsg, modelURL sql.NullString
		var uploaded int
		if err := rows.Scan(&r.ModelName, &modelFile, &r.Status, &r.StartedAt, &r.FinishedAt, &errMsg, &uploaded, &modelURL); err != nil {
			return nil, err
		}
		r.ModelFile = modelFile.String
		r.Error = errMsg.String
		r.ModelURL = modelURL.String
		r.Uploaded = uploaded != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
