// Package tablestore defines the relational store the workout core persists through. Backends live in
// internal/sqlite and internal/postgres.
package tablestore

import (
	"context"
	"errors"
)

var (
	// ErrNoRecord is returned when an update or delete targets an id that does not exist.
	ErrNoRecord = errors.New("no record")
	// ErrInvalidIdentifier is returned for table or column names that are not plain snake_case identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Op is a filter operator.
type Op int

const (
	OpEq Op = iota
	OpIsNull
	OpIsNotNull
)

// Condition filters rows on a single column. Value is only used by OpEq.
type Condition struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Condition {
	return Condition{Column: column, Op: OpEq, Value: value}
}

func IsNull(column string) Condition {
	return Condition{Column: column, Op: OpIsNull, Value: nil}
}

func IsNotNull(column string) Condition {
	return Condition{Column: column, Op: OpIsNotNull, Value: nil}
}

// Query selects rows matching all conditions in Where. A zero Limit means no limit.
type Query struct {
	Where      []Condition
	OrderBy    string
	Descending bool
	Limit      int
}

// Store is a relational store keyed by table name. Every table has a text primary key named id.
type Store interface {
	Find(ctx context.Context, table string, q Query) ([]Record, error)
	Insert(ctx context.Context, table string, rec Record) error
	// Update applies patch to the row with the given id. It returns ErrNoRecord if there is no such row.
	Update(ctx context.Context, table string, id string, patch Record) error
	// Delete removes the row with the given id. It returns ErrNoRecord if there is no such row.
	Delete(ctx context.Context, table string, id string) error
	// InTx runs fn in a unit of work. The changes made through tx are committed when fn returns nil and
	// rolled back otherwise. Calling InTx on tx runs fn in the same unit of work.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
