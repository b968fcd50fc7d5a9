package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/internal/platform/config"
)

func TestNew(t *testing.T) {
	t.Run("empty URL disables redis", func(t *testing.T) {
		client, err := New(context.Background(), config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("connects and reports health", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 2})
		require.NoError(t, err)
		defer client.Close()

		assert.NoError(t, client.Health(context.Background()))
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{URL: "://nope"})
		require.Error(t, err)
	})
}
