package crud

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/accounts-be/internal/apperrors"
	"github.com/isdelr/accounts-be/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID     int64
	Name   string
	Color  sql.NullString
	Weight int
}

func (w widget) PrimaryKey() int64 { return w.ID }

var widgetTable = Table[widget]{
	Name:    "widgets",
	Columns: []string{"name", "color", "weight"},
	Scan: func(s Scanner) (widget, error) {
		var w widget
		err := s.Scan(&w.ID, &w.Name, &w.Color, &w.Weight)
		return w, err
	},
}

func setupEngine(t *testing.T) (*Engine[widget], *sql.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "crud.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE widgets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT,
		weight INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)

	return New(db, widgetTable), db
}

func seed(t *testing.T, e *Engine[widget], names ...string) []widget {
	t.Helper()
	out := make([]widget, 0, len(names))
	for i, name := range names {
		w, err := e.Create(context.Background(), map[string]any{"name": name, "weight": len(names) - i})
		require.NoError(t, err)
		out = append(out, w)
	}
	return out
}

func ids(ws []widget) []int64 {
	out := make([]int64, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

func TestCreateAssignsID(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()

	w, err := e.Create(ctx, map[string]any{"id": 99, "name": "bolt", "color": "red", "unknown": 1})
	require.NoError(t, err)

	assert.NotZero(t, w.ID)
	assert.NotEqual(t, int64(99), w.ID, "primary key must come from the store")
	assert.Equal(t, "bolt", w.Name)
	assert.Equal(t, sql.NullString{String: "red", Valid: true}, w.Color)
	assert.Equal(t, 0, w.Weight, "generated default is read back")
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, map[string]any{"name": "nut"})
	require.NoError(t, err)

	_, err = e.Create(ctx, map[string]any{"name": "nut"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGetAndGetOrFail(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()
	created := seed(t, e, "gear")[0]

	got, ok, err := e.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, created, got)

	_, ok, err = e.Get(ctx, created.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.GetOrFail(ctx, created.ID+100)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetBy(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()
	seeded := seed(t, e, "a", "b")

	got, ok, err := e.GetBy(ctx, "name", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, seeded[1].ID, got.ID)

	_, ok, err = e.GetBy(ctx, "name", "zzz")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = e.GetBy(ctx, "name; DROP TABLE widgets", "x")
	assert.Error(t, err)
}

func TestListDefaultOrderAndPaging(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()
	all := seed(t, e, "a", "b", "c", "d", "e")

	page, err := e.List(ctx, Page{Offset: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids(all[:2]), ids(page))

	page, err = e.List(ctx, Page{Offset: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, ids(all[3:]), ids(page))

	page, err = e.List(ctx, Page{})
	require.NoError(t, err)
	assert.Len(t, page, 5, "zero limit means the default cap")

	page, err = e.List(ctx, Page{Offset: -4, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{all[0].ID}, ids(page))
}

func TestListOrdering(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()
	all := seed(t, e, "c", "a", "b") // weights 3, 2, 1

	tests := []struct {
		orderBy string
		want    []int64
	}{
		{"", ids(all)},
		{"name", []int64{all[1].ID, all[2].ID, all[0].ID}},
		{"-name", []int64{all[0].ID, all[2].ID, all[1].ID}},
		{"weight", []int64{all[2].ID, all[1].ID, all[0].ID}},
		{"-id", []int64{all[2].ID, all[1].ID, all[0].ID}},
		{"bogus", ids(all)},
		{"-bogus", ids(all)},
	}
	for _, tt := range tests {
		t.Run(tt.orderBy, func(t *testing.T) {
			got, err := e.List(ctx, Page{OrderBy: tt.orderBy})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestListSortableRestrictsOrdering(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "sortable.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE widgets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT,
		weight INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)

	table := widgetTable
	table.Sortable = []string{"name"}
	e := New(db, table)
	ctx := context.Background()
	all := seed(t, e, "c", "a", "b") // weights 3, 2, 1

	got, err := e.List(ctx, Page{OrderBy: "-weight"})
	require.NoError(t, err)
	assert.Equal(t, ids(all), ids(got), "weight is not sortable, falls back to key order")

	got, err = e.List(ctx, Page{OrderBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, []int64{all[1].ID, all[2].ID, all[0].ID}, ids(got))
}

func TestListEmptyIsNotNil(t *testing.T) {
	e, _ := setupEngine(t)
	got, err := e.List(context.Background(), Page{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpdatePartial(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()
	w := seed(t, e, "spring")[0]

	updated, err := e.Update(ctx, w, map[string]any{"color": "blue", "id": 500, "nope": true})
	require.NoError(t, err)

	assert.Equal(t, w.ID, updated.ID)
	assert.Equal(t, "spring", updated.Name)
	assert.Equal(t, w.Weight, updated.Weight)
	assert.Equal(t, "blue", updated.Color.String)

	unchanged, err := e.Update(ctx, updated, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, updated, unchanged)
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	e, _ := setupEngine(t)
	_, err := e.Update(context.Background(), widget{ID: 42}, map[string]any{"name": "x"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemove(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()
	w := seed(t, e, "washer")[0]

	removed, err := e.Remove(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, removed)

	_, ok, err := e.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.Remove(ctx, w.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCount(t *testing.T) {
	e, _ := setupEngine(t)
	seed(t, e, "a", "b", "c")

	n, err := e.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestEngineUsesRequestSession(t *testing.T) {
	e, db := setupEngine(t)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)

	_, err = e.Create(database.WithSession(ctx, tx), map[string]any{"name": "inside-tx"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	n, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "write went through the session, so rollback discards it")
}

func TestStorageFailuresAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := New(db, widgetTable)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, color, weight FROM widgets WHERE id = ? ORDER BY id LIMIT 1")).
		WithArgs(int64(1)).
		WillReturnError(boom)
	_, _, err = e.Get(context.Background(), 1)
	assert.True(t, apperrors.IsStorage(err))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, color, weight FROM widgets ORDER BY id ASC LIMIT ? OFFSET ?")).
		WithArgs(MaxLimit, 0).
		WillReturnError(boom)
	_, err = e.List(context.Background(), Page{})
	assert.True(t, apperrors.IsStorage(err))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO widgets (name) VALUES (?)")).
		WithArgs("x").
		WillReturnError(boom)
	_, err = e.Create(context.Background(), map[string]any{"name": "x"})
	assert.True(t, apperrors.IsStorage(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
