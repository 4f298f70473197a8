package pg_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/pg"
)

type fakeRow struct {
	value []byte
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

type fakeDB struct {
	rows  map[string][]byte
	err   error
	execs []string
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	if db.err != nil {
		return pgconn.CommandTag{}, db.err
	}
	key := args[0].(string)
	if len(args) == 2 {
		db.rows[key] = args[1].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	delete(db.rows, key)
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if db.err != nil {
		return fakeRow{err: db.err}
	}
	v, ok := db.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

func TestStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		db := &fakeDB{rows: map[string][]byte{}}
		store := pg.NewStore(db)

		got, err := store.Get(ctx, "notifications:v1")
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, store.Set(ctx, "notifications:v1", []byte("[]")))
		got, err = store.Get(ctx, "notifications:v1")
		require.NoError(t, err)
		assert.Equal(t, []byte("[]"), got)

		require.NoError(t, store.Delete(ctx, "notifications:v1"))
		got, err = store.Get(ctx, "notifications:v1")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Len(t, db.execs, 2)
	})

	t.Run("nil value stored as empty", func(t *testing.T) {
		t.Parallel()
		db := &fakeDB{rows: map[string][]byte{}}
		require.NoError(t, pg.NewStore(db).Set(ctx, "k", nil))
		assert.Equal(t, []byte{}, db.rows["k"])
	})

	t.Run("driver errors surface", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		store := pg.NewStore(&fakeDB{err: boom})

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, store.Set(ctx, "k", []byte("v")), boom)
	})
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()
	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, pg.IsNotFoundError(errors.Join(errors.New("query"), pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(nil))
	assert.False(t, pg.IsNotFoundError(errors.New("other")))
}

func TestConnect(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)

	_, err = pg.Connect(context.Background(), pg.Config{ConnectionString: "postgres://%zz"})
	assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}

func TestMigrateAndStoreIntegration(t *testing.T) {
	url := os.Getenv("PG_TEST_URL")
	if url == "" {
		t.Skip("PG_TEST_URL not set")
	}
	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: url,
		RetryAttempts:    1,
		RetryInterval:    time.Millisecond,
		MigrationsTable:  "schema_migrations",
	}

	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, logger.Discard()))
	require.NoError(t, pg.Healthcheck(pool)(ctx))

	store := pg.NewStore(pool)
	key := "integration-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	require.NoError(t, store.Set(ctx, key, []byte("one")))
	require.NoError(t, store.Set(ctx, key, []byte("two")))
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestMigrateMissingDir(t *testing.T) {
	t.Parallel()
	err := pg.Migrate(context.Background(), nil, pg.Config{MigrationsPath: "does/not/exist"}, logger.Discard())
	assert.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
}

type schemaDB struct {
	fakeDB
	exists bool
	err    error
}

type boolRow struct {
	v   bool
	err error
}

func (r boolRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.v
	return nil
}

func (db *schemaDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return boolRow{v: db.exists, err: db.err}
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	require.NoError(t, pg.Healthcheck(&schemaDB{exists: true})(ctx))

	err := pg.Healthcheck(&schemaDB{exists: false})(ctx)
	require.ErrorIs(t, err, pg.ErrHealthcheckFailed)
	assert.ErrorIs(t, err, pg.ErrSchemaMissing)

	down := errors.New("connection refused")
	err = pg.Healthcheck(&schemaDB{err: down})(ctx)
	require.ErrorIs(t, err, pg.ErrHealthcheckFailed)
	assert.ErrorIs(t, err, down)
}
