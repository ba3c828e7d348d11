package recorder

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solid-gateway/internal/database"
	"solid-gateway/internal/message"
)

func newRedisStore(t *testing.T, maxKeep int64, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test", maxKeep, ttl), server
}

func newMySQLStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewMySQLStore(database.Wrap(sqlx.NewDb(db, "mysql")))
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	return store, mock
}

func TestRedisStore_StoreAndGetAll(t *testing.T) {
	store, _ := newRedisStore(t, 0, 0)
	ctx := context.Background()

	items, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, store.Store(ctx, "alice: Hello"))
	require.NoError(t, store.Store(ctx, "bob: Hi"))

	items, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice: Hello", "bob: Hi"}, items)
}

func TestRedisStore_Clear(t *testing.T) {
	store, _ := newRedisStore(t, 0, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "a"))
	require.NoError(t, store.Clear(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRedisStore_TrimsToMaxKeep(t *testing.T) {
	store, _ := newRedisStore(t, 2, 0)
	ctx := context.Background()

	for _, item := range []string{"a", "b", "c"} {
		require.NoError(t, store.Store(ctx, item))
	}

	items, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, items)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestRedisStore_TTL(t *testing.T) {
	store, server := newRedisStore(t, 0, time.Hour)
	require.NoError(t, store.Store(context.Background(), "a"))
	assert.Equal(t, time.Hour, server.TTL("test:records"))
}

func TestRedisStore_ZeroRetentionKeepsEverything(t *testing.T) {
	store, server := newRedisStore(t, 0, 0)
	ctx := context.Background()

	for _, item := range []string{"a", "b", "c"} {
		require.NoError(t, store.Store(ctx, item))
	}
	server.FastForward(365 * 24 * time.Hour)

	items, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)
	assert.Zero(t, server.TTL("test:records"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, server := newRedisStore(t, 0, 0)
	server.Close()

	assert.Error(t, store.Store(context.Background(), "a"))
	_, err := store.GetAll(context.Background())
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}

func TestMySQLStore(t *testing.T) {
	store, mock := newMySQLStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).
		WithArgs("alice: Hello", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(sqlQueryRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"item"}).AddRow("alice: Hello"))

	require.NoError(t, store.Store(ctx, "alice: Hello"))
	items, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice: Hello"}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Errors(t *testing.T) {
	store, mock := newMySQLStore(t)
	dbErr := errors.New("connection refused")

	mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).WillReturnError(dbErr)
	mock.ExpectQuery(regexp.QuoteMeta(sqlQueryRecords)).WillReturnError(dbErr)

	assert.ErrorIs(t, store.Store(context.Background(), "x"), dbErr)
	_, err := store.GetAll(context.Background())
	assert.ErrorIs(t, err, dbErr)
}

func TestHybridStore_WritesBoth(t *testing.T) {
	redisStore, _ := newRedisStore(t, 0, 0)
	mysqlStore, mock := newMySQLStore(t)
	store := NewHybridStore(redisStore, mysqlStore)

	mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(sqlCountRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, store.Store(context.Background(), "a"))
	items, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHybridStore_MySQLWriteFailure(t *testing.T) {
	redisStore, _ := newRedisStore(t, 0, 0)
	mysqlStore, mock := newMySQLStore(t)
	store := NewHybridStore(redisStore, mysqlStore)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).WillReturnError(errors.New("mysql down"))
	mock.ExpectQuery(regexp.QuoteMeta(sqlCountRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	assert.Error(t, store.Store(ctx, "a"))

	cached, err := redisStore.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, cached)

	items, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHybridStore_FailedCallNotVisibleThroughProcessor(t *testing.T) {
	redisStore, _ := newRedisStore(t, 0, 0)
	mysqlStore, mock := newMySQLStore(t)
	processor := message.NewProcessor(message.NewLogger(io.Discard), NewHybridStore(redisStore, mysqlStore), message.NewDisplay(io.Discard))
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).WillReturnError(errors.New("mysql down"))
	mock.ExpectQuery(regexp.QuoteMeta(sqlCountRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	assert.False(t, processor.ProcessMessage(ctx, "Hello", "Agent1"))

	records, err := processor.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHybridStore_RedisWriteFailureFallsBackToMySQL(t *testing.T) {
	redisStore, server := newRedisStore(t, 0, 0)
	mysqlStore, mock := newMySQLStore(t)
	store := NewHybridStore(redisStore, mysqlStore)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).WillReturnResult(sqlmock.NewResult(1, 1))
	server.Close()
	require.NoError(t, store.Store(ctx, "a"))

	mock.ExpectQuery(regexp.QuoteMeta(sqlQueryRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"item"}).AddRow("a"))

	items, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHybridStore_RedisAheadOfMySQLUsesMySQL(t *testing.T) {
	redisStore, _ := newRedisStore(t, 0, 0)
	mysqlStore, mock := newMySQLStore(t)
	ctx := context.Background()

	require.NoError(t, redisStore.Store(ctx, "stale"))

	mock.ExpectQuery(regexp.QuoteMeta(sqlCountRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(sqlQueryRecords)).
		WillReturnRows(sqlmock.NewRows([]string{"item"}))

	items, err := NewHybridStore(redisStore, mysqlStore).GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHybridStore_FallsBackToMySQL(t *testing.T) {
	t.Run("redis trimmed", func(t *testing.T) {
		redisStore, _ := newRedisStore(t, 1, 0)
		mysqlStore, mock := newMySQLStore(t)
		store := NewHybridStore(redisStore, mysqlStore)

		mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta(sqlInsertRecord)).WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectQuery(regexp.QuoteMeta(sqlCountRecords)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(regexp.QuoteMeta(sqlQueryRecords)).
			WillReturnRows(sqlmock.NewRows([]string{"item"}).AddRow("a").AddRow("b"))

		require.NoError(t, store.Store(context.Background(), "a"))
		require.NoError(t, store.Store(context.Background(), "b"))

		items, err := store.GetAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, items)
	})

	t.Run("redis down", func(t *testing.T) {
		redisStore, server := newRedisStore(t, 0, 0)
		mysqlStore, mock := newMySQLStore(t)
		server.Close()

		mock.ExpectQuery(regexp.QuoteMeta(sqlQueryRecords)).
			WillReturnRows(sqlmock.NewRows([]string{"item"}).AddRow("a"))

		items, err := NewHybridStore(redisStore, mysqlStore).GetAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, items)
	})
}
