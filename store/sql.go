package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore keeps each table as a SQL table of TEXT columns plus a seq
// column that preserves insertion order. It runs on sqlite3 and postgres.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQL(driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s store: missing dsn", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		// One writer; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	s := &SQLStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLFromDB wraps an existing connection without running the schema.
func NewSQLFromDB(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quotedColumns(t Table) string {
	cols := Columns[t]
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = quote(c)
	}
	return strings.Join(q, ", ")
}

func schema(t Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\tseq INTEGER NOT NULL", quote(string(t)))
	for _, c := range Columns[t] {
		fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL DEFAULT ''", quote(c))
	}
	b.WriteString("\n)")
	return b.String()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, t := range Tables() {
		if _, err := s.db.ExecContext(ctx, schema(t)); err != nil {
			return fmt.Errorf("create table %s: %w", t, err)
		}
	}
	return nil
}

func insertQuery(t Table) string {
	n := len(Columns[t]) + 1
	return fmt.Sprintf("INSERT INTO %s (seq, %s) VALUES (%s)",
		quote(string(t)), quotedColumns(t), strings.TrimSuffix(strings.Repeat("?, ", n), ", "))
}

func (s *SQLStore) Read(ctx context.Context, t Table) ([]Row, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryxContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY seq ASC", quotedColumns(t), quote(string(t))))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		cells := make([]string, len(vals))
		for i, v := range vals {
			switch x := v.(type) {
			case string:
				cells[i] = x
			case []byte:
				cells[i] = string(x)
			case nil:
			default:
				cells[i] = fmt.Sprint(x)
			}
		}
		out = append(out, RowFrom(t, cells))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) insert(ctx context.Context, tx *sqlx.Tx, t Table, seq int64, r Row) error {
	args := []any{seq}
	for _, v := range r.Values(t) {
		args = append(args, v)
	}
	_, err := tx.ExecContext(ctx, tx.Rebind(insertQuery(t)), args...)
	return err
}

// Overwrite replaces the table contents in a single transaction.
func (s *SQLStore) Overwrite(ctx context.Context, t Table, rows []Row) (err error) {
	if err := checkTable(t); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM "+quote(string(t))); err != nil {
		return err
	}
	for i, r := range rows {
		if err = s.insert(ctx, tx, t, int64(i+1), r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Append(ctx context.Context, t Table, rows ...Row) (err error) {
	if err := checkTable(t); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var last int64
	if err = tx.GetContext(ctx, &last, "SELECT COALESCE(MAX(seq), 0) FROM "+quote(string(t))); err != nil {
		return err
	}
	for i, r := range rows {
		if err = s.insert(ctx, tx, t, last+int64(i+1), r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
