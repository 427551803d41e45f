// Package sqlite implements the store interface for a local SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // load the pure Go sqlite driver

	"github.com/tarancss/zecdev/lib/store"
)

// SQLite implements a connection to a SQLite database.
type SQLite struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// single writer; WAL lets /history read while the faucet writes
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err = s.migrate(); err != nil {
		db.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS faucet_history (
			id         TEXT PRIMARY KEY,
			ts         INTEGER NOT NULL,
			kind       TEXT NOT NULL,
			to_address TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			txid       TEXT NOT NULL,
			memo       TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_faucet_history_ts ON faucet_history(ts)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// CloseSQLite will close the database. Must be called at termination time.
func (s *SQLite) CloseSQLite() error {
	return s.db.Close()
}

// AddTx saves a transaction record.
func (s *SQLite) AddTx(ctx context.Context, tx store.TxRecord) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO faucet_history (id, ts, kind, to_address, amount, txid, memo) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Timestamp.UnixNano(), tx.Kind, tx.ToAddress, int64(tx.Amount), tx.TxID, tx.Memo)
	if err != nil {
		return fmt.Errorf("insert tx %s: %w", tx.TxID, err)
	}

	return nil
}

// GetTxs returns the last limit records, oldest first.
func (s *SQLite) GetTxs(ctx context.Context, limit int) ([]store.TxRecord, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, kind, to_address, amount, txid, memo FROM faucet_history ORDER BY ts DESC, rowid DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	txs := []store.TxRecord{}

	for rows.Next() {
		var (
			tx     store.TxRecord
			ts     int64
			amount int64
		)

		if err = rows.Scan(&tx.ID, &ts, &tx.Kind, &tx.ToAddress, &amount, &tx.TxID, &tx.Memo); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		tx.Timestamp = time.Unix(0, ts).UTC()
		tx.Amount = uint64(amount)
		txs = append(txs, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	store.Reverse(txs)

	return txs, nil
}
