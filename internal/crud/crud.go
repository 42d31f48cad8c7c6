// Package crud implements create/read/update/delete/list once for every
// table-backed entity type. An entity only has to expose its integer
// primary key and describe its columns through a Table.
package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/accounts-be/internal/apperrors"
	"github.com/isdelr/accounts-be/internal/database"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MaxLimit is the default and maximum page size for List.
const MaxLimit = 5000

// Entity is any persisted type with a surrogate integer key.
type Entity interface {
	PrimaryKey() int64
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Table describes how an entity maps onto a SQL table.
type Table[T Entity] struct {
	Name string
	// Key is the primary key column, "id" when empty.
	Key string
	// Columns lists the non-key columns. Scan receives the key followed by these.
	Columns []string
	// Sortable limits the columns List may order by. Nil means all of Columns.
	Sortable []string
	Scan     func(Scanner) (T, error)
}

// Page selects a window of a List result.
type Page struct {
	Offset int
	Limit  int
	// OrderBy names a column; a leading "-" requests descending order.
	OrderBy string
}

// Engine runs the generic operations for one entity type.
type Engine[T Entity] struct {
	table   Table[T]
	db      database.Querier
	known    map[string]bool
	sortable map[string]bool
	columns  string
}

// New creates an Engine. db is used whenever the context carries no request session.
func New[T Entity](db database.Querier, table Table[T]) *Engine[T] {
	if table.Key == "" {
		table.Key = "id"
	}
	known := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		known[c] = true
	}
	sortable := known
	if table.Sortable != nil {
		sortable = make(map[string]bool, len(table.Sortable))
		for _, c := range table.Sortable {
			if known[c] {
				sortable[c] = true
			}
		}
	}
	return &Engine[T]{
		table:    table,
		db:       db,
		known:    known,
		sortable: sortable,
		columns:  strings.Join(append([]string{table.Key}, table.Columns...), ", "),
	}
}

func (e *Engine[T]) q(ctx context.Context) database.Querier {
	return database.SessionFrom(ctx, e.db)
}

func (e *Engine[T]) selectSQL() string {
	return "SELECT " + e.columns + " FROM " + e.table.Name
}

// Get looks up a single row by primary key. ok is false when it does not exist.
func (e *Engine[T]) Get(ctx context.Context, id int64) (T, bool, error) {
	return e.getWhere(ctx, e.table.Key, id)
}

// GetBy looks up the first row, in key order, whose column equals value.
func (e *Engine[T]) GetBy(ctx context.Context, column string, value any) (T, bool, error) {
	var zero T
	if column != e.table.Key && !e.known[column] {
		return zero, false, fmt.Errorf("%s: unknown column %q", e.table.Name, column)
	}
	return e.getWhere(ctx, column, value)
}

func (e *Engine[T]) getWhere(ctx context.Context, column string, value any) (T, bool, error) {
	var zero T
	query := e.selectSQL() + " WHERE " + column + " = ? ORDER BY " + e.table.Key + " LIMIT 1"
	entity, err := e.table.Scan(e.q(ctx).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, apperrors.Storage(e.table.Name+".get", err)
	}
	return entity, true, nil
}

// GetOrFail is Get for callers without a fallback: a missing row is ErrNotFound.
func (e *Engine[T]) GetOrFail(ctx context.Context, id int64) (T, error) {
	entity, ok, err := e.Get(ctx, id)
	if err != nil {
		return entity, err
	}
	if !ok {
		return entity, fmt.Errorf("%s %d: %w", e.table.Name, id, apperrors.ErrNotFound)
	}
	return entity, nil
}

// List returns a page of rows ordered by page.OrderBy, or by primary key when it
// is empty or names a column that is not sortable.
func (e *Engine[T]) List(ctx context.Context, page Page) ([]T, error) {
	limit := page.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	offset := max(page.Offset, 0)

	query := e.selectSQL() + " ORDER BY " + e.orderClause(page.OrderBy) + " LIMIT ? OFFSET ?"
	rows, err := e.q(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Storage(e.table.Name+".list", err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		entity, err := e.table.Scan(rows)
		if err != nil {
			return nil, apperrors.Storage(e.table.Name+".list", err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(e.table.Name+".list", err)
	}
	return out, nil
}

func (e *Engine[T]) orderClause(orderBy string) string {
	key := e.table.Key + " ASC"
	column, desc := strings.CutPrefix(orderBy, "-")
	if column == e.table.Key {
		if desc {
			return e.table.Key + " DESC"
		}
		return key
	}
	if !e.sortable[column] {
		return key
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	// The key breaks ties so pages stay stable.
	return column + dir + ", " + key
}

// Create inserts a row built from the known columns in values and returns it as
// stored, including generated fields. The primary key is always assigned by the store.
func (e *Engine[T]) Create(ctx context.Context, values map[string]any) (T, error) {
	var zero T
	cols, args := e.pick(values)

	query := "INSERT INTO " + e.table.Name + " DEFAULT VALUES"
	if len(cols) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		query = "INSERT INTO " + e.table.Name + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders + ")"
	}

	res, err := e.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return zero, e.writeError("create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return zero, apperrors.Storage(e.table.Name+".create", err)
	}
	return e.GetOrFail(ctx, id)
}

// Update writes only the known, non-key columns present in changes and returns
// the row as stored afterwards.
func (e *Engine[T]) Update(ctx context.Context, existing T, changes map[string]any) (T, error) {
	var zero T
	id := existing.PrimaryKey()
	cols, args := e.pick(changes)
	if len(cols) == 0 {
		return e.GetOrFail(ctx, id)
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	query := "UPDATE " + e.table.Name + " SET " + strings.Join(sets, ", ") + " WHERE " + e.table.Key + " = ?"

	res, err := e.q(ctx).ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return zero, e.writeError("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return zero, apperrors.Storage(e.table.Name+".update", err)
	}
	if n == 0 {
		return zero, fmt.Errorf("%s %d: %w", e.table.Name, id, apperrors.ErrNotFound)
	}
	return e.GetOrFail(ctx, id)
}

// Remove deletes the row and returns its last known state. Removing a missing
// row is ErrNotFound.
func (e *Engine[T]) Remove(ctx context.Context, id int64) (T, error) {
	entity, err := e.GetOrFail(ctx, id)
	if err != nil {
		return entity, err
	}
	query := "DELETE FROM " + e.table.Name + " WHERE " + e.table.Key + " = ?"
	if _, err := e.q(ctx).ExecContext(ctx, query, id); err != nil {
		var zero T
		return zero, apperrors.Storage(e.table.Name+".remove", err)
	}
	return entity, nil
}

// Count returns the number of rows in the table.
func (e *Engine[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := e.q(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM "+e.table.Name).Scan(&n); err != nil {
		return 0, apperrors.Storage(e.table.Name+".count", err)
	}
	return n, nil
}

// pick keeps known non-key columns, in table order so statements are deterministic.
func (e *Engine[T]) pick(values map[string]any) ([]string, []any) {
	var cols []string
	var args []any
	for _, c := range e.table.Columns {
		if v, ok := values[c]; ok {
			cols = append(cols, c)
			args = append(args, v)
		}
	}
	return cols, args
}

func (e *Engine[T]) writeError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s.%s: %w", e.table.Name, op, apperrors.ErrConflict)
	}
	return apperrors.Storage(e.table.Name+"."+op, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
