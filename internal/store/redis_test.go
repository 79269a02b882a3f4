package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm-stock-prediction/internal/common/database"
	"llm-stock-prediction/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return database.NewRedisFromClient(client), mr
}

func newSession(userID string, ttl time.Duration) *models.Session {
	return &models.Session{UserID: userID, ExpiresAt: time.Now().Add(ttl)}
}

// ==========================
// SessionStore
// ==========================

func TestSessionStore_CreateAndFind(t *testing.T) {
	rdb, mr := newMiniRedis(t)
	store := NewSessionStore(rdb)
	ctx := context.Background()

	s := newSession("u-1", time.Hour)
	require.NoError(t, store.Create(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.Token, 64)

	assert.True(t, mr.Exists("session:u-1:"+s.ID))
	assert.True(t, mr.Exists("session:token:"+s.Token))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:token:"+s.Token).Seconds(), 2)

	got, err := store.FindByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "u-1", got.UserID)
}

func TestSessionStore_Create_Rejects(t *testing.T) {
	rdb, _ := newMiniRedis(t)
	store := NewSessionStore(rdb)

	assert.Error(t, store.Create(context.Background(), &models.Session{ExpiresAt: time.Now().Add(time.Hour)}))
	assert.Error(t, store.Create(context.Background(), newSession("u-1", -time.Minute)))
}

func TestSessionStore_FindByToken_NotFound(t *testing.T) {
	rdb, mr := newMiniRedis(t)
	store := NewSessionStore(rdb)
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		_, err := store.FindByToken(ctx, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := store.FindByToken(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired by ttl", func(t *testing.T) {
		s := newSession("u-2", time.Minute)
		require.NoError(t, store.Create(ctx, s))
		mr.FastForward(2 * time.Minute)

		_, err := store.FindByToken(ctx, s.Token)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("dangling index is cleaned up", func(t *testing.T) {
		s := newSession("u-3", time.Hour)
		require.NoError(t, store.Create(ctx, s))
		mr.Del("session:u-3:" + s.ID)

		_, err := store.FindByToken(ctx, s.Token)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, mr.Exists("session:token:"+s.Token))
	})
}

func TestSessionStore_FindByToken_RedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSessionStore(database.NewRedisFromClient(client))

	mock.ExpectGet("session:token:abc").SetErr(errors.New("connection reset"))

	_, err := store.FindByToken(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Delete(t *testing.T) {
	rdb, mr := newMiniRedis(t)
	store := NewSessionStore(rdb)
	ctx := context.Background()

	s := newSession("u-1", time.Hour)
	require.NoError(t, store.Create(ctx, s))

	require.NoError(t, store.Delete(ctx, s))
	assert.False(t, mr.Exists("session:u-1:"+s.ID))
	assert.False(t, mr.Exists("session:token:"+s.Token))

	// second delete is a no-op
	assert.NoError(t, store.Delete(ctx, s))
}

func TestSessionStore_DeleteAllForUser(t *testing.T) {
	rdb, _ := newMiniRedis(t)
	store := NewSessionStore(rdb)
	ctx := context.Background()

	a1, a2 := newSession("u-a", time.Hour), newSession("u-a", time.Hour)
	b := newSession("u-b", time.Hour)
	for _, s := range []*models.Session{a1, a2, b} {
		require.NoError(t, store.Create(ctx, s))
	}

	require.NoError(t, store.DeleteAllForUser(ctx, "u-a"))

	for _, s := range []*models.Session{a1, a2} {
		_, err := store.FindByToken(ctx, s.Token)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	got, err := store.FindByToken(ctx, b.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-b", got.UserID)
}

// ==========================
// PredictionStore
// ==========================

func TestPredictionStore_SaveAndLatest(t *testing.T) {
	rdb, mr := newMiniRedis(t)
	store := NewPredictionStore(rdb, 24*time.Hour)
	ctx := context.Background()

	_, err := store.Latest(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)

	first := &models.PredictionRecord{UserID: "u-1", PredictionCSV: "a\nb", IsCSVPlausible: true, RowCount: 2}
	require.NoError(t, store.SaveLatest(ctx, first))
	second := &models.PredictionRecord{UserID: "u-1", PredictionCSV: "c", RowCount: 1}
	require.NoError(t, store.SaveLatest(ctx, second))

	got, err := store.Latest(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "c", got.PredictionCSV)
	assert.False(t, got.IsCSVPlausible)
	assert.Equal(t, 24*time.Hour, mr.TTL("prediction:u-1:latest"))
}

func TestPredictionStore_Latest_Corrupt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewPredictionStore(database.NewRedisFromClient(client), time.Hour)

	mock.ExpectGet("prediction:u-1:latest").SetVal("not json")

	_, err := store.Latest(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode prediction")
	assert.NoError(t, mock.ExpectationsWereMet())
}
