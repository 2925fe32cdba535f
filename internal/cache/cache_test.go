package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/internal/model"
	"AttendanceBot/storage/redis"
)

func withRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	redis.Use(c)
	t.Cleanup(func() {
		redis.Use(nil)
		_ = c.Close()
	})
	return mr
}

func TestDisabledRedisIsPassThrough(t *testing.T) {
	redis.Use(nil)
	ctx := context.Background()

	_, ok, err := GetChannel(ctx, "attendance")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, SetChannel(ctx, model.Channel{ID: "C1", Name: "attendance"}))

	found, missing, err := GetProfiles(ctx, []string{"U1", "U2"})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, []string{"U1", "U2"}, missing)

	locked, err := TryLock(ctx, "report:daily:2024-01-08", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	first, err := TryMarkMessageProcessing(ctx, "m1", 0)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestChannelCache(t *testing.T) {
	withRedis(t)
	ctx := context.Background()

	_, ok, err := GetChannel(ctx, "attendance")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetChannel(ctx, model.Channel{ID: "C1", Name: "attendance"}))

	ch, ok, err := GetChannel(ctx, "attendance")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.Channel{ID: "C1", Name: "attendance"}, ch)
}

func TestProfileCacheReportsMissing(t *testing.T) {
	withRedis(t)
	ctx := context.Background()

	require.NoError(t, SetProfiles(ctx, []model.Member{
		{ID: "U1", DisplayName: "Alice"},
		{ID: "U3", DisplayName: "Carol"},
	}))

	found, missing, err := GetProfiles(ctx, []string{"U1", "U2", "U3", "U4"})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Member{
		"U1": {ID: "U1", DisplayName: "Alice"},
		"U3": {ID: "U3", DisplayName: "Carol"},
	}, found)
	assert.Equal(t, []string{"U2", "U4"}, missing)
}

func TestProfileCacheExpires(t *testing.T) {
	mr := withRedis(t)
	ctx := context.Background()

	require.NoError(t, SetProfiles(ctx, []model.Member{{ID: "U1", DisplayName: "Alice"}}))
	mr.FastForward(7 * time.Hour)

	_, missing, err := GetProfiles(ctx, []string{"U1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"U1"}, missing)
}

func TestEmptyValueProtection(t *testing.T) {
	withRedis(t)
	ctx := context.Background()
	pc := NewProtectedCache("test", time.Minute)

	require.NoError(t, pc.Set(ctx, "nobody", nil))

	var dest model.Member
	hit, empty, err := pc.Get(ctx, "nobody", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, empty)
}

func TestTryLock(t *testing.T) {
	withRedis(t)
	ctx := context.Background()

	ok, err := TryLock(ctx, "report:weekly:2024-01-12", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TryLock(ctx, "report:weekly:2024-01-12", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Unlock(ctx, "report:weekly:2024-01-12"))
	ok, err = TryLock(ctx, "report:weekly:2024-01-12", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMessageIdempotency(t *testing.T) {
	mr := withRedis(t)
	ctx := context.Background()

	ok, err := TryMarkMessageProcessing(ctx, "m1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TryMarkMessageProcessing(ctx, "m1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, MarkMessageProcessed(ctx, "m1", 0))
	val, err := mr.Get(redis.Key(messageProcessedPrefix, "m1"))
	require.NoError(t, err)
	assert.Equal(t, "completed", val)

	require.NoError(t, UnmarkMessageProcessing(ctx, "m1"))
	ok, err = TryMarkMessageProcessing(ctx, "m1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
