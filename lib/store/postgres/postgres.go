// Package postgres implements the store interface for PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/tarancss/zecdev/lib/store"
)

// Postgres implements a connection to a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection' and creates the history table
// if needed.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("error connecting to postgres DB: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS faucet_history (
		id         TEXT PRIMARY KEY,
		ts         TIMESTAMPTZ NOT NULL,
		kind       TEXT NOT NULL,
		to_address TEXT NOT NULL,
		amount     BIGINT NOT NULL,
		txid       TEXT NOT NULL,
		memo       TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("create history table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// ClosePostgres will close any database connection. Must be called at termination time.
func (p *Postgres) ClosePostgres() error {
	return p.db.Close()
}

// AddTx saves a transaction record.
func (p *Postgres) AddTx(ctx context.Context, tx store.TxRecord) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO faucet_history (id, ts, kind, to_address, amount, txid, memo) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.Timestamp, tx.Kind, tx.ToAddress, int64(tx.Amount), tx.TxID, tx.Memo)
	if err != nil {
		return fmt.Errorf("insert tx %s: %w", tx.TxID, err)
	}

	return nil
}

// GetTxs returns the last limit records, oldest first. A limit <= 0 returns all of them.
func (p *Postgres) GetTxs(ctx context.Context, limit int) ([]store.TxRecord, error) {
	var lim interface{} // NULL means no limit

	if limit > 0 {
		lim = limit
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, ts, kind, to_address, amount, txid, memo FROM faucet_history ORDER BY ts DESC LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	txs := []store.TxRecord{}

	for rows.Next() {
		var (
			tx     store.TxRecord
			amount int64
		)

		if err = rows.Scan(&tx.ID, &tx.Timestamp, &tx.Kind, &tx.ToAddress, &amount, &tx.TxID, &tx.Memo); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		tx.Amount = uint64(amount)
		txs = append(txs, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	store.Reverse(txs)

	return txs, nil
}
