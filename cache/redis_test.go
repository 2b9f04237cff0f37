package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisC.Terminate(ctx)

	addr, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)

	r, err := NewRedis(ctx, RedisConfig{Addr: addr}, time.Second)
	require.NoError(t, err)
	defer r.Close()

	page := &Page{Status: 200, ContentType: "application/json", Body: []byte(`{"posts":[]}`)}
	require.NoError(t, r.Set(ctx, "/", page))
	require.NoError(t, r.Set(ctx, "/?page=2", page))

	got, ok, err := r.Get(ctx, "/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, page, got)

	require.NoError(t, r.client.Set(ctx, "other:key", "kept", 0).Err())
	require.NoError(t, r.Clear(ctx))
	_, ok, err = r.Get(ctx, "/?page=2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "kept", r.client.Get(ctx, "other:key").Val())

	require.NoError(t, r.Set(ctx, "/", page))
	assert.Eventually(t, func() bool {
		_, ok, _ := r.Get(ctx, "/")
		return !ok
	}, 3*time.Second, 100*time.Millisecond)
}
