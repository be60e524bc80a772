package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrateKV = `CREATE TABLE IF NOT EXISTS ledger_kv (
        key   BYTEA PRIMARY KEY,
        value BYTEA NOT NULL
    )`

// lockKey maps a key onto the 64-bit advisory lock space.
const lockKey = `SELECT pg_advisory_xact_lock(('x' || substr(md5($1::bytea), 1, 16))::bit(64)::bigint)`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres persists key-value pairs in a single PostgreSQL table. Top level
// scopes run in a READ COMMITTED transaction, nested scopes in savepoints.
// Writers sharing the table across processes serialize through Lock, which
// takes a transaction scoped advisory lock derived from the key.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store. Call Migrate before first use.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the backing table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, migrateKV); err != nil {
		return fmt.Errorf("migrate ledger_kv: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return get(ctx, p.db, key)
}

func (p *Postgres) Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	return iterate(ctx, p.db, prefix, fn)
}

func (p *Postgres) Put(ctx context.Context, key, value []byte) error {
	return put(ctx, p.db, key, value)
}

func (p *Postgres) Delete(ctx context.Context, key []byte) error {
	return del(ctx, p.db, key)
}

func (p *Postgres) Transactional(ctx context.Context, fn func(tx Writer) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	return runTx(ctx, tx, fn)
}

// Lock outside a transaction would be released immediately, so it does nothing.
func (p *Postgres) Lock(context.Context, []byte) error {
	return nil
}

// Ping checks connectivity with the database.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close closes the underlying pool.
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

type pgScope struct {
	tx pgx.Tx
}

func runTx(ctx context.Context, tx pgx.Tx, fn func(tx Writer) error) error {
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgScope{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgScope) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return get(ctx, s.tx, key)
}

func (s *pgScope) Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	return iterate(ctx, s.tx, prefix, fn)
}

func (s *pgScope) Put(ctx context.Context, key, value []byte) error {
	return put(ctx, s.tx, key, value)
}

func (s *pgScope) Delete(ctx context.Context, key []byte) error {
	return del(ctx, s.tx, key)
}

func (s *pgScope) Lock(ctx context.Context, key []byte) error {
	if _, err := s.tx.Exec(ctx, lockKey, key); err != nil {
		return fmt.Errorf("lock key: %w", err)
	}
	return nil
}

// Transactional opens a savepoint inside the current transaction.
func (s *pgScope) Transactional(ctx context.Context, fn func(tx Writer) error) error {
	nested, err := s.tx.Begin(ctx)
	if err != nil {
		return err
	}
	return runTx(ctx, nested, fn)
}

func get(ctx context.Context, q querier, key []byte) ([]byte, bool, error) {
	var value []byte
	if err := q.QueryRow(ctx, `SELECT value FROM ledger_kv WHERE key = $1`, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func iterate(ctx context.Context, q querier, prefix []byte, fn func(key, value []byte) error) error {
	const query = `
        SELECT key, value
        FROM ledger_kv
        WHERE substr(key, 1, $2) = $1
        ORDER BY key`
	rows, err := q.Query(ctx, query, prefix, len(prefix))
	if err != nil {
		return err
	}

	type pair struct{ key, value []byte }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// fn may issue queries on the same connection, so rows must be closed first.
	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

func put(ctx context.Context, q querier, key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := q.Exec(ctx, `INSERT INTO ledger_kv (key, value) VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

func del(ctx context.Context, q querier, key []byte) error {
	_, err := q.Exec(ctx, `DELETE FROM ledger_kv WHERE key = $1`, key)
	return err
}
