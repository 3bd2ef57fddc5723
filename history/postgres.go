package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// schema of the history table. position is the index of the row in the log.
const schema = `
CREATE TABLE IF NOT EXISTS account_history (
	id             BIGSERIAL PRIMARY KEY,
	position       INTEGER NOT NULL,
	day            DATE NOT NULL,
	account_id     TEXT NOT NULL,
	currency       TEXT NOT NULL,
	cash           NUMERIC NOT NULL,
	holdings_value NUMERIC NOT NULL,
	total          NUMERIC NOT NULL,
	captured_at    TIMESTAMPTZ NOT NULL,
	batch          UUID NOT NULL
);
CREATE INDEX IF NOT EXISTS account_history_position ON account_history (position);
`

// lockKey identifies the advisory lock taken by writers.
const lockKey = 0x62666565 // "bfee"

// PostgresLog is a HistoryLog stored in a PostgreSQL table.
//
// Update runs in a single transaction holding an advisory lock from the read
// of the entries to the commit, so concurrent writers, even from different
// processes, are serialized.
type PostgresLog struct {
	db *sql.DB
}

// OpenPostgres connects to the database and creates the history table if needed.
// connectionString is either a URL or a "host=... dbname=..." string.
func OpenPostgres(ctx context.Context, connectionString string) (*PostgresLog, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}
	return &PostgresLog{db: db}, nil
}

// Close closes the database connection.
func (l *PostgresLog) Close() error { return l.db.Close() }

func (l *PostgresLog) Entries(ctx context.Context) ([]brokerfeed.HistorySnapshot, error) {
	return readEntries(ctx, l.db)
}

// querier is implemented by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readEntries(ctx context.Context, q querier) ([]brokerfeed.HistorySnapshot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT day, account_id, currency, cash, holdings_value, total, captured_at, batch
		FROM account_history
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []brokerfeed.HistorySnapshot
	for rows.Next() {
		var (
			e                     brokerfeed.HistorySnapshot
			day                   time.Time
			cash, holdings, total string
		)
		if err := rows.Scan(&day, &e.AccountID, &e.Currency, &cash, &holdings, &total, &e.CapturedAt, &e.Batch); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		// DATE columns come back as UTC midnight.
		e.Date = date.New(day.Date())
		if e.Cash, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("failed to parse cash: %w", err)
		}
		if e.HoldingsValue, err = decimal.NewFromString(holdings); err != nil {
			return nil, fmt.Errorf("failed to parse holdings_value: %w", err)
		}
		if e.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("failed to parse total: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *PostgresLog) ReplaceRange(ctx context.Context, start, end int, rows []brokerfeed.HistorySnapshot) error {
	return l.Update(ctx, brokerfeed.Replace(start, end, rows))
}

// Update reads the entries, calls edit and replaces the range it returns in
// one transaction holding the writers' advisory lock.
func (l *PostgresLog) Update(ctx context.Context, edit brokerfeed.EditFunc) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("failed to lock history: %w", err)
	}
	entries, err := readEntries(ctx, tx)
	if err != nil {
		return err
	}
	start, end, rows, err := edit(entries)
	if err != nil {
		return err
	}
	if start < 0 || end < start || end > len(entries) {
		err = fmt.Errorf("invalid history range [%d, %d) for %d entries", start, end, len(entries))
		return err
	}
	if err = replaceRange(ctx, tx, start, end, rows); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

func replaceRange(ctx context.Context, tx *sql.Tx, start, end int, rows []brokerfeed.HistorySnapshot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM account_history WHERE position >= $1 AND position < $2`, start, end); err != nil {
		return fmt.Errorf("failed to delete history rows: %w", err)
	}
	if shift := len(rows) - (end - start); shift != 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE account_history SET position = position + $1 WHERE position >= $2`, shift, end); err != nil {
			return fmt.Errorf("failed to shift history rows: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO account_history (position, day, account_id, currency, cash, holdings_value, total, captured_at, batch)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, r := range rows {
		batch := r.Batch
		if batch == uuid.Nil {
			batch = uuid.New()
		}
		if _, err := stmt.ExecContext(ctx,
			start+i,
			r.Date.String(),
			r.AccountID,
			r.Currency,
			r.Cash.String(),
			r.HoldingsValue.String(),
			r.Total.String(),
			r.CapturedAt,
			batch,
		); err != nil {
			return fmt.Errorf("failed to insert history row: %w", err)
		}
	}
	return nil
}

var _ brokerfeed.HistoryLog = (*PostgresLog)(nil)
