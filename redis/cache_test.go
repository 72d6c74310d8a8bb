package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewWithClient(client)
	t.Cleanup(cache.Close)
	return cache, mr
}

type record struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "projects:1", record{ID: 1, Title: "Compiler"}, time.Hour)
	assert.NoError(t, err)

	var got record
	found, err := cache.Get(ctx, "projects:1", &got)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, record{ID: 1, Title: "Compiler"}, got)
}

func TestCache_Miss(t *testing.T) {
	cache, _ := testCache(t)

	var got record
	found, err := cache.Get(context.Background(), "nope", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	cache, mr := testCache(t)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "k", record{ID: 1}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var got record
	found, err := cache.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_VersionCounter(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	assert.Equal(t, uint64(0), cache.GetVersion(ctx, "project:1:proposals:version"))

	cache.IncrementVersion(ctx, "project:1:proposals:version")
	cache.IncrementVersion(ctx, "project:1:proposals:version")

	assert.Equal(t, uint64(2), cache.GetVersion(ctx, "project:1:proposals:version"))
}

// bumping the version orphans entries cached under the old version key
func TestCache_VersionedKeyInvalidation(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	versionKey := "project:1:proposals:version"
	v := cache.GetVersion(ctx, versionKey)
	assert.NoError(t, cache.Set(ctx, listKey(v), []record{{ID: 1}}, time.Hour))

	var got []record
	found, _ := cache.Get(ctx, listKey(cache.GetVersion(ctx, versionKey)), &got)
	assert.True(t, found)

	cache.IncrementVersion(ctx, versionKey)

	found, _ = cache.Get(ctx, listKey(cache.GetVersion(ctx, versionKey)), &got)
	assert.False(t, found)
}

func listKey(version uint64) string {
	return fmt.Sprintf("proposals:p:1:v:%d", version)
}

func TestCache_NilClientIsNoOp(t *testing.T) {
	cache := NewWithClient(nil)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "k", record{ID: 1}, time.Hour))

	var got record
	found, err := cache.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, uint64(0), cache.GetVersion(ctx, "k:version"))
	cache.IncrementVersion(ctx, "k:version")
	assert.Equal(t, uint64(0), cache.GetVersion(ctx, "k:version"))
}
