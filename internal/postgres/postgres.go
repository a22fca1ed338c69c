// Package postgres stores the workout domain tables in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/myrjola/liftplan/internal/tablestore"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

const (
	maxConns        = 10
	connMaxLifetime = time.Hour
)

// NewPool connects to connString and creates the domain tables unless they exist.
func NewPool(ctx context.Context, connString string, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MaxConnLifetime = connMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	start := time.Now()
	if _, err = pool.Exec(ctx, schemaDefinition); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "migrated postgres schema",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.Duration("duration", time.Since(start)))

	return pool, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements [tablestore.Store] on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	db   querier
	tx   pgx.Tx
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool, tx: nil}
}

func (s *Store) Find(ctx context.Context, table string, q tablestore.Query) ([]tablestore.Record, error) {
	stmt, err := tablestore.Postgres.Select(table, q)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []tablestore.Record
	for rows.Next() {
		values, valuesErr := rows.Values()
		if valuesErr != nil {
			return nil, fmt.Errorf("row values: %w", valuesErr)
		}
		rec := make(tablestore.Record, len(fields))
		for i, field := range fields {
			rec[field.Name] = values[i]
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

func (s *Store) Insert(ctx context.Context, table string, rec tablestore.Record) error {
	stmt, err := tablestore.Postgres.Insert(table, rec)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err = s.db.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table string, id string, patch tablestore.Record) error {
	stmt, err := tablestore.Postgres.Update(table, id, patch)
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	return s.execAffectingOne(ctx, table, id, stmt)
}

func (s *Store) Delete(ctx context.Context, table string, id string) error {
	stmt, err := tablestore.Postgres.Delete(table, id)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	return s.execAffectingOne(ctx, table, id, stmt)
}

func (s *Store) execAffectingOne(ctx context.Context, table string, id string, stmt tablestore.Statement) error {
	tag, err := s.db.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return fmt.Errorf("exec on %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, tablestore.ErrNoRecord)
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx tablestore.Store) error) (err error) {
	if s.tx != nil {
		return fn(ctx, s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	if err = fn(ctx, &Store{pool: s.pool, db: tx, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
