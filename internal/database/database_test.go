package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openverse/openverse/internal/config"
	"github.com/openverse/openverse/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for _, r := range []model.Resource{
		{SourceName: "Zeta Source", Category: "Category B", Field: "Field 1"},
		{SourceName: "Alpha Source", Category: "Category A", Field: "Field 2", Link: model.NewLink("https://alpha.example")},
		{SourceName: "Mid Source", Category: "Category A", Field: "Field 3"},
	} {
		isNew, err := db.UpsertResource(ctx, &r)
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Positive(t, r.ID)
	}

	resources, err := db.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 3)
	assert.Equal(t, []string{"Alpha Source", "Mid Source", "Zeta Source"},
		[]string{resources[0].SourceName, resources[1].SourceName, resources[2].SourceName})
	assert.Equal(t, "https://alpha.example", resources[0].Link.OrEmpty())
	assert.True(t, resources[1].Link.IsAbsent())
}

func TestUpsertMatchesNaturalKey(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first := model.Resource{SourceName: "Source", Category: "Category", Field: "Field"}
	_, err := db.UpsertResource(ctx, &first)
	require.NoError(t, err)

	again := model.Resource{SourceName: "Source", Category: "Category", Field: "Field", Link: model.NewLink("https://x.example")}
	isNew, err := db.UpsertResource(ctx, &again)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, again.ID)

	got, err := db.GetResource(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://x.example", got.Link.OrEmpty())

	n, err := db.CountResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertWithExplicitID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	r := model.Resource{ID: 42, SourceName: "Source", Category: "Category", Field: "Field"}
	isNew, err := db.UpsertResource(ctx, &r)
	require.NoError(t, err)
	assert.True(t, isNew)

	r.Field = "Other Field"
	isNew, err = db.UpsertResource(ctx, &r)
	require.NoError(t, err)
	assert.False(t, isNew)

	got, err := db.GetResource(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Other Field", got.Field)
}

func TestListSkipsInvalidRows(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.conn.Exec("INSERT INTO resource (source_name, category, field) VALUES ('Ok Source', 'Cat', 'Field'), ('X', 'Cat', 'Field')")
	require.NoError(t, err)

	resources, err := db.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "Ok Source", resources[0].SourceName)
}

func TestListEmpty(t *testing.T) {
	resources, err := newTestDB(t).ListResources(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, resources)
	assert.Empty(t, resources)
}

func TestGetAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.GetResource(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteResource(ctx, 99), ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	r := model.Resource{SourceName: "Source", Category: "Category", Field: "Field"}
	_, err := db.UpsertResource(ctx, &r)
	require.NoError(t, err)
	require.NoError(t, db.DeleteResource(ctx, r.ID))

	n, err := db.CountResources(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInMemory(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	r := model.Resource{SourceName: "Source", Category: "Category", Field: "Field"}
	_, err = db.UpsertResource(context.Background(), &r)
	require.NoError(t, err)
	resources, err := db.ListResources(context.Background())
	require.NoError(t, err)
	assert.Len(t, resources, 1)
	assert.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, "SQLite", db.DatabaseType())
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "oracle"
	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "open.db")
	store, err := Open(cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.False(t, store.SupportsHighConcurrency())
}
