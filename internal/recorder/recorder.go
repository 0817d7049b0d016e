// Package recorder persists raw execution batches into SQLite for offline
// analysis. Recording is best effort and never blocks a trading decision.
package recorder

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	channel     TEXT    NOT NULL,
	exec_id     INTEGER NOT NULL,
	side        TEXT    NOT NULL,
	price       REAL    NOT NULL,
	size        TEXT    NOT NULL,
	exec_date   TEXT    NOT NULL,
	recorded_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_channel ON executions(channel, exec_id);
`

type Recorder struct {
	db      *sql.DB
	channel string
}

func Open(path, channel string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Recorder{db: db, channel: channel}, nil
}

// Record appends one execution batch in a single transaction.
func (r *Recorder) Record(execs []bitflyer.Execution) error {
	if len(execs) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	stmt, err := tx.Prepare(
		`INSERT INTO executions (channel, exec_id, side, price, size, exec_date, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range execs {
		if _, err := stmt.Exec(r.channel, e.ID, string(e.Side), e.Price, e.Size.String(), e.ExecDate, now); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "insert execution")
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (r *Recorder) Close() error {
	return r.db.Close()
}
