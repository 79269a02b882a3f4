package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Postgres
// ==========================

func TestPostgresClient_WithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM uploads").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c := NewPostgresFromDB(db)
		err = c.WithTx(context.Background(), func(tx *sql.Tx) error {
			_, err := tx.Exec("DELETE FROM uploads")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		c := NewPostgresFromDB(db)
		boom := errors.New("boom")
		err = c.WithTx(context.Background(), func(tx *sql.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("no conn"))

		err = NewPostgresFromDB(db).WithTx(context.Background(), func(tx *sql.Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "begin transaction")
	})
}

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("refused"))

	err = NewPostgresFromDB(db).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping failed")
}

// ==========================
// Redis
// ==========================

func TestRedisClient_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rc.Close()

	ctx := context.Background()
	require.NoError(t, rc.Ping(ctx))
	require.NoError(t, rc.Set(ctx, "session:1:abc", "v", time.Minute))

	got, err := rc.Get(ctx, "session:1:abc")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, time.Minute, mr.TTL("session:1:abc"))

	require.NoError(t, rc.Del(ctx, "session:1:abc"))
	_, err = rc.Get(ctx, "session:1:abc")
	assert.True(t, IsNil(err))
}

func TestRedisClient_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rc.Close()
	mr.Close()

	err := rc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

// ==========================
// Health
// ==========================

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestCheckAll(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, CheckAll(ctx, map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{}}))
	assert.NoError(t, CheckAll(ctx, map[string]Pinger{"redis": nil}))

	err := CheckAll(ctx, map[string]Pinger{"redis": stubPinger{err: errors.New("down")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis not ready")
}
