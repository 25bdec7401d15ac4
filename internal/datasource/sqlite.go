package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/idilsaglam/todolist/internal/model"

	_ "modernc.org/sqlite"
)

// SQLite stores items in a single table. AUTOINCREMENT keeps ids from being
// reused after deletes, and seq order is insertion order.
type SQLite struct {
	db      *sql.DB
	latency time.Duration
	strict  bool
}

var _ DataSource = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at opts.Path. Seeds are written
// once, the first time the database is initialised.
func OpenSQLite(opts Options) (*SQLite, error) {
	ctx := context.Background()
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: keeps ":memory:" databases coherent and writes serial.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}
	s := &SQLite{db: db, latency: opts.Latency, strict: opts.StrictUpdate}
	if err := s.migrate(ctx, opts.seed()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context, seed []model.CreateInput) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL DEFAULT '',
			is_complete INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v string
	err = tx.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = 'seeded'`).Scan(&v)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqlite meta: %w", err)
	}
	for _, in := range seed {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items(text, is_complete) VALUES(?, ?)`, in.Text, in.IsComplete); err != nil {
			return fmt.Errorf("sqlite seed: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(k, v) VALUES('seeded', ?)`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("sqlite meta: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) Create(ctx context.Context, in model.CreateInput) ([]model.Item, error) {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items(text, is_complete) VALUES(?, ?)`, in.Text, in.IsComplete); err != nil {
			return fmt.Errorf("sqlite insert: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Fetch(ctx context.Context) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	return queryItems(ctx, s.db)
}

func (s *SQLite) Remove(ctx context.Context, it model.Item) ([]model.Item, error) {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		seq, ok := parseID(it.ID)
		if !ok {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE seq = ?`, int64(seq)); err != nil {
			return fmt.Errorf("sqlite delete: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Update(ctx context.Context, it model.Item) ([]model.Item, error) {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		var n int64
		if seq, ok := parseID(it.ID); ok {
			res, err := tx.ExecContext(ctx, `UPDATE items SET text = ?, is_complete = ? WHERE seq = ?`, it.Text, it.IsComplete, int64(seq))
			if err != nil {
				return fmt.Errorf("sqlite update: %w", err)
			}
			if n, err = res.RowsAffected(); err != nil {
				return fmt.Errorf("sqlite update: %w", err)
			}
		}
		if n == 0 && s.strict {
			return invalidID(it.ID)
		}
		return nil
	})
}

// mutate waits out the latency, then applies fn and reads the collection back
// in one transaction, so a cancelled call leaves the table untouched.
func (s *SQLite) mutate(ctx context.Context, fn func(tx *sql.Tx) error) ([]model.Item, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return nil, err
	}
	items, err := queryItems(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite commit: %w", err)
	}
	return items, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryItems(ctx context.Context, q querier) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, `SELECT seq, text, is_complete FROM items ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite select: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var (
			seq int64
			it  model.Item
		)
		if err := rows.Scan(&seq, &it.Text, &it.IsComplete); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		it.ID = strconv.FormatInt(seq, 10)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite rows: %w", err)
	}
	return items, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
