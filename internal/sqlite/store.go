package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/liftplan/internal/tablestore"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store implements [tablestore.Store] on top of the database.
//
// Reads outside a unit of work use the read-only pool. Inside InTx every statement goes through the single
// read-write connection so that the work function observes its own writes.
type Store struct {
	db     *Database
	reader queryer
	writer queryer
	inTx   bool
}

// Store returns a [tablestore.Store] backed by db.
func (db *Database) Store() *Store {
	return &Store{db: db, reader: db.ReadOnly, writer: db.ReadWrite, inTx: false}
}

func (s *Store) Find(ctx context.Context, table string, q tablestore.Query) (_ []tablestore.Record, err error) {
	stmt, err := tablestore.SQLite.Select(table, q)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var rows *sql.Rows
	if rows, err = s.reader.QueryContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]tablestore.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	var records []tablestore.Record
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err = rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make(tablestore.Record, len(columns))
		for i, column := range columns {
			rec[column] = values[i]
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

func (s *Store) Insert(ctx context.Context, table string, rec tablestore.Record) error {
	stmt, err := tablestore.SQLite.Insert(table, rec)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err = s.writer.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table string, id string, patch tablestore.Record) error {
	stmt, err := tablestore.SQLite.Update(table, id, patch)
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	return s.execAffectingOne(ctx, table, id, stmt)
}

func (s *Store) Delete(ctx context.Context, table string, id string) error {
	stmt, err := tablestore.SQLite.Delete(table, id)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	return s.execAffectingOne(ctx, table, id, stmt)
}

func (s *Store) execAffectingOne(ctx context.Context, table string, id string, stmt tablestore.Statement) error {
	result, err := s.writer.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return fmt.Errorf("exec on %s: %w", table, err)
	}
	var affected int64
	if affected, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", table, id, tablestore.ErrNoRecord)
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx tablestore.Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}
	var tx *sql.Tx
	if tx, err = s.db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				slog.Any("error", rollbackErr))
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	if err = fn(ctx, &Store{db: s.db, reader: tx, writer: tx, inTx: true}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
