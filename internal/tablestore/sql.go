package tablestore

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

var identifierRegexp = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Dialect adapts the generated SQL to a backend.
type Dialect struct {
	// Placeholder returns the bind parameter for the n:th argument, starting from 1.
	Placeholder func(n int) string
	// BindTime converts a timestamp to the value bound to the driver.
	BindTime func(t time.Time) any
}

// SQLite binds question marks and stores timestamps as fixed-width UTC text.
//
//nolint:gochecknoglobals // immutable dialect definition.
var SQLite = Dialect{
	Placeholder: func(_ int) string { return "?" },
	BindTime:    func(t time.Time) any { return t.UTC().Format(TimeLayout) },
}

// Postgres binds numbered parameters and passes timestamps through to timestamptz columns.
//
//nolint:gochecknoglobals // immutable dialect definition.
var Postgres = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	BindTime:    func(t time.Time) any { return t.UTC() },
}

// Statement is a query and its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

func validateIdentifier(name string) error {
	if !identifierRegexp.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// bind normalises Go values into driver values.
func (d Dialect) bind(v any) any {
	switch x := v.(type) {
	case time.Time:
		return d.BindTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return d.BindTime(*x)
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *int:
		if x == nil {
			return nil
		}
		return *x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return v
	}
}

func (d Dialect) where(conditions []Condition, args []any) (string, []any, error) {
	if len(conditions) == 0 {
		return "", args, nil
	}
	clauses := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if err := validateIdentifier(c.Column); err != nil {
			return "", nil, err
		}
		switch c.Op {
		case OpEq:
			args = append(args, d.bind(c.Value))
			clauses = append(clauses, c.Column+" = "+d.Placeholder(len(args)))
		case OpIsNull:
			clauses = append(clauses, c.Column+" IS NULL")
		case OpIsNotNull:
			clauses = append(clauses, c.Column+" IS NOT NULL")
		default:
			return "", nil, fmt.Errorf("unknown operator %d on column %s", c.Op, c.Column)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// Select builds a SELECT * statement for q.
func (d Dialect) Select(table string, q Query) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}
	var b strings.Builder
	b.WriteString("SELECT * FROM " + table)
	where, args, err := d.where(q.Where, nil)
	if err != nil {
		return Statement{}, err
	}
	b.WriteString(where)
	if q.OrderBy != "" {
		if err = validateIdentifier(q.OrderBy); err != nil {
			return Statement{}, err
		}
		b.WriteString(" ORDER BY " + q.OrderBy)
		if q.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		b.WriteString(" LIMIT " + d.Placeholder(len(args)))
	}
	return Statement{SQL: b.String(), Args: args}, nil
}

// Insert builds an INSERT statement with the columns of rec in sorted order.
func (d Dialect) Insert(table string, rec Record) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}
	if len(rec) == 0 {
		return Statement{}, fmt.Errorf("insert into %s: empty record", table)
	}
	columns := slices.Sorted(maps.Keys(rec))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		if err := validateIdentifier(column); err != nil {
			return Statement{}, err
		}
		args[i] = d.bind(rec[column])
		placeholders[i] = d.Placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return Statement{SQL: query, Args: args}, nil
}

// Update builds an UPDATE statement setting the columns of patch on the row with the given id.
func (d Dialect) Update(table string, id string, patch Record) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}
	if len(patch) == 0 {
		return Statement{}, fmt.Errorf("update %s: empty patch", table)
	}
	columns := slices.Sorted(maps.Keys(patch))
	assignments := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		if err := validateIdentifier(column); err != nil {
			return Statement{}, err
		}
		args = append(args, d.bind(patch[column]))
		assignments[i] = column + " = " + d.Placeholder(len(args))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", table, strings.Join(assignments, ", "), d.Placeholder(len(args)))
	return Statement{SQL: query, Args: args}, nil
}

// Delete builds a DELETE statement for the row with the given id.
func (d Dialect) Delete(table string, id string) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DELETE FROM " + table + " WHERE id = " + d.Placeholder(1), Args: []any{id}}, nil
}
