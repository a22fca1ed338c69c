package sqlite

import (
	"cmp"
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"syscall"
	"time"
)

const (
	liveSchema   = "main"
	targetSchema = "schemaTarget"
)

type objectType string

const (
	objectTable   objectType = "table"
	objectIndex   objectType = "index"
	objectTrigger objectType = "trigger"
)

// schemaObject is one row of sqlite_schema.
type schemaObject struct {
	typ  objectType
	name string
	sql  string
}

// schemaDiff lists what has to happen to objects of one type for the live schema to match the target.
type schemaDiff struct {
	dropped []schemaObject
	created []schemaObject
	// changed holds the target definition of objects present in both schemas.
	changed []schemaObject
}

func (d schemaDiff) empty() bool {
	return len(d.dropped) == 0 && len(d.created) == 0 && len(d.changed) == 0
}

// migrateTo makes the live schema match schemaDefinition declaratively.
//
// The target schema is created in an attached in-memory database and compared object by object with the live one.
// Tables are migrated first because rebuilding a table drops its indexes and triggers. Changed tables are rebuilt
// with the 12-step procedure in https://www.sqlite.org/lang_altertable.html#otheralter.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) error {
	start := time.Now()

	detach, err := db.attachTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign key validation: %w", err)
	}
	defer db.enableForeignKeys(ctx)

	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer db.rollback(ctx, tx)()

	m := migration{tx: tx, logger: db.logger}
	for _, typ := range []objectType{objectTable, objectTrigger, objectIndex} {
		if err = m.sync(ctx, typ); err != nil {
			return fmt.Errorf("migrate %ss: %w", typ, err)
		}
	}

	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database",
		slog.Int("statements", m.statements),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// enableForeignKeys turns foreign key enforcement back on. Running without it risks silent corruption, so a failure
// stops the process.
func (db *Database) enableForeignKeys(ctx context.Context) {
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "exit to avoid data corruption",
			slog.Any("error", fmt.Errorf("re-enable foreign key validation: %w", err)))
		if err = syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
			os.Exit(1)
		}
	}
}

// attachTarget creates the target schema in a fresh in-memory database and attaches it to the read-write connection.
// The returned function detaches it.
func (db *Database) attachTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open target database: %w", err)
	}
	// The shared cache keeps the in-memory database alive while it is attached.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close target database", slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS "+targetSchema, dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE "+targetSchema); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target database", slog.Any("error", detachErr))
		}
	}, nil
}

// rollback rolls back given transaction.
func (db *Database) rollback(ctx context.Context, tx *sql.Tx) func() {
	return func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			err = fmt.Errorf("rollback transaction: %w", err)
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", slog.Any("error", err))
		}
	}
}

// migration runs the schema changes inside one transaction.
type migration struct {
	tx         *sql.Tx
	logger     *slog.Logger
	statements int
}

func (m *migration) exec(ctx context.Context, query string, args ...any) error {
	m.logger.LogAttrs(ctx, slog.LevelInfo, "migration statement", slog.String("query", query))
	if _, err := m.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec %q: %w", query, err)
	}
	m.statements++
	return nil
}

// sync brings all objects of typ in line with the target schema. The live schema is read again on each call since
// earlier steps may have dropped objects implicitly.
func (m *migration) sync(ctx context.Context, typ objectType) error {
	live, err := m.objects(ctx, liveSchema, typ)
	if err != nil {
		return err
	}
	target, err := m.objects(ctx, targetSchema, typ)
	if err != nil {
		return err
	}
	diff := diffObjects(live, target)
	if diff.empty() {
		return nil
	}

	for _, o := range diff.dropped {
		if err = m.exec(ctx, dropStatement(o)); err != nil {
			return err
		}
	}
	for _, o := range diff.created {
		if err = m.exec(ctx, o.sql); err != nil {
			return err
		}
	}
	for _, o := range diff.changed {
		if typ == objectTable {
			if err = m.rebuildTable(ctx, o); err != nil {
				return err
			}
			continue
		}
		if err = m.exec(ctx, dropStatement(o)); err != nil {
			return err
		}
		if err = m.exec(ctx, o.sql); err != nil {
			return err
		}
	}
	return nil
}

// rebuildTable replaces a table whose definition changed, keeping the data of the columns that survive.
func (m *migration) rebuildTable(ctx context.Context, target schemaObject) error {
	tempName := target.name + "_migration_temp"
	if err := m.exec(ctx, strings.Replace(target.sql, target.name, tempName, 1)); err != nil {
		return err
	}

	columns, err := m.commonColumns(ctx, target.name)
	if err != nil {
		return err
	}
	cols := strings.Join(columns, ", ")
	copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, cols, cols, target.name)
	if err = m.exec(ctx, copySQL); err != nil {
		return err
	}

	if err = m.exec(ctx, "DROP TABLE "+target.name); err != nil {
		return err
	}
	return m.exec(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, target.name))
}

// objects lists the user defined objects of typ in the given schema.
func (m *migration) objects(ctx context.Context, schema string, typ objectType) ([]schemaObject, error) {
	query := fmt.Sprintf(`SELECT name, sql
FROM %s.sqlite_schema
WHERE type = ?
  AND sql IS NOT NULL
  AND name NOT LIKE 'sqlite_%%'
  AND name NOT LIKE '_litestream_%%'
ORDER BY name`, schema)
	rows, err := m.tx.QueryContext(ctx, query, string(typ))
	if err != nil {
		return nil, fmt.Errorf("query %s objects: %w", schema, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", slog.Any("error", closeErr))
		}
	}()
	var objects []schemaObject
	for rows.Next() {
		o := schemaObject{typ: typ, name: "", sql: ""}
		if err = rows.Scan(&o.name, &o.sql); err != nil {
			return nil, fmt.Errorf("scan schema object: %w", err)
		}
		objects = append(objects, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema objects: %w", err)
	}
	return objects, nil
}

// commonColumns returns the quoted names of the columns the live and target table share.
func (m *migration) commonColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := m.tx.QueryContext(ctx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS live
JOIN PRAGMA_TABLE_INFO(:table_name, '`+targetSchema+`') AS target ON target.name = live.name
ORDER BY target.cid`, sql.Named("table_name", table))
	if err != nil {
		return nil, fmt.Errorf("query common columns of %s: %w", table, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", slog.Any("error", closeErr))
		}
	}()
	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

// diffObjects compares two name-sorted object lists of the same type.
func diffObjects(live, target []schemaObject) schemaDiff {
	var diff schemaDiff
	byName := func(o schemaObject, name string) int { return cmp.Compare(o.name, name) }
	for _, o := range live {
		if _, found := slices.BinarySearchFunc(target, o.name, byName); !found {
			diff.dropped = append(diff.dropped, o)
		}
	}
	for _, o := range target {
		i, found := slices.BinarySearchFunc(live, o.name, byName)
		switch {
		case !found:
			diff.created = append(diff.created, o)
		case !sameDefinition(live[i].sql, o.sql):
			diff.changed = append(diff.changed, o)
		}
	}
	return diff
}

// sameDefinition ignores double quotes, which ALTER TABLE RENAME adds around the table name.
func sameDefinition(live, target string) bool {
	return strings.ReplaceAll(live, `"`, "") == strings.ReplaceAll(target, `"`, "")
}

func dropStatement(o schemaObject) string {
	return fmt.Sprintf("DROP %s IF EXISTS %s", strings.ToUpper(string(o.typ)), o.name)
}
