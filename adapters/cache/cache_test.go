package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEntry struct {
	ID    string
	Title string
}

func setupTest(t *testing.T) (*redis.Client, redismock.ClientMock, func()) {
	db, mock := redismock.NewClientMock()
	return db, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func TestRedisCache_GetMiss(t *testing.T) {
	db, mock, teardown := setupTest(t)
	defer teardown()

	mock.ExpectGet("gifts:feed").RedisNil()

	c := NewRedisCache[[]testEntry](db, WithPrefix("gifts:"))
	value, ok, err := c.Get(context.Background(), "feed")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestRedisCache_SetThenGet(t *testing.T) {
	db, mock, teardown := setupTest(t)
	defer teardown()

	entries := []testEntry{{ID: "1", Title: "for ashley"}}
	payload, err := msgpack.Marshal(entries)
	require.NoError(t, err)

	mock.ExpectSet("gifts:feed", payload, 30*time.Second).SetVal("OK")
	mock.ExpectGet("gifts:feed").SetVal(string(payload))

	c := NewRedisCache[[]testEntry](db, WithPrefix("gifts:"))
	require.NoError(t, c.Set(context.Background(), "feed", entries, 30*time.Second))

	value, ok, err := c.Get(context.Background(), "feed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entries, value)
}

func TestRedisCache_GetUndecodable(t *testing.T) {
	db, mock, teardown := setupTest(t)
	defer teardown()

	mock.ExpectGet("feed").SetVal("not msgpack at all")

	c := NewRedisCache[[]testEntry](db)
	_, ok, err := c.Get(context.Background(), "feed")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Invalidate(t *testing.T) {
	db, mock, teardown := setupTest(t)
	defer teardown()

	mock.ExpectDel("gifts:feed").SetVal(1)

	c := NewRedisCache[[]testEntry](db, WithPrefix("gifts:"))
	assert.NoError(t, c.Invalidate(context.Background(), "feed"))
}
