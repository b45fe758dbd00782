package fecstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// CheckpointStore persists ingest progress in a local sqlite file so an
// interrupted bulk load can resume without re-writing committed batches.
type CheckpointStore struct {
	db *sql.DB
}

// NewCheckpointStore opens (or creates) the checkpoint database at the
// given path and configures WAL mode.
func NewCheckpointStore(dsn string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "checkpoint: exec %s", pragma)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			dataset    TEXT NOT NULL,
			data_year  INTEGER NOT NULL,
			last_line  INTEGER NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (dataset, data_year)
		)`,
	); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "checkpoint: migrate")
	}

	return &CheckpointStore{db: db}, nil
}

// Close releases the underlying database handle.
func (c *CheckpointStore) Close() error {
	return c.db.Close()
}

// LastLine returns the last committed line for a (dataset, year), or 0
// when no checkpoint exists.
func (c *CheckpointStore) LastLine(ctx context.Context, dataset string, dataYear int) (int64, error) {
	var line int64
	err := c.db.QueryRowContext(ctx,
		`SELECT last_line FROM checkpoints WHERE dataset = ? AND data_year = ?`,
		dataset, dataYear,
	).Scan(&line)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "checkpoint: read %s/%d", dataset, dataYear)
	}
	return line, nil
}

// SetLastLine records progress for a (dataset, year).
func (c *CheckpointStore) SetLastLine(ctx context.Context, dataset string, dataYear int, line int64) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO checkpoints (dataset, data_year, last_line, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT (dataset, data_year) DO UPDATE SET
		     last_line = excluded.last_line, updated_at = datetime('now')`,
		dataset, dataYear, line,
	)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: write %s/%d", dataset, dataYear)
	}
	return nil
}

// Clear removes the checkpoint for a (dataset, year) after a complete
// load.
func (c *CheckpointStore) Clear(ctx context.Context, dataset string, dataYear int) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE dataset = ? AND data_year = ?`,
		dataset, dataYear,
	)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: clear %s/%d", dataset, dataYear)
	}
	return nil
}
