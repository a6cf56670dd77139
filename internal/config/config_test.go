package config_test

import (
	"testing"
	"time"

	"github.com/Danohx/modasarita-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestFromEnvironment(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := config.FromEnvironment(map[string]string{"API_URL": "http://localhost:3000"})
		require.NoError(t, err)
		require.Equal(t, config.EnvDev, c.GetEnv())
		require.True(t, c.IsDev())
		require.Equal(t, "Moda Sarita", c.GetAppName())
		require.Equal(t, "http://localhost:3000", c.GetAPIURL())
		require.Equal(t, 15*time.Second, c.GetRequestTimeout())
		require.Equal(t, config.StoreFile, c.GetStoreDriver())
		require.Equal(t, "./data/session.json", c.GetStorePath())

		rps, burst := c.GetRateLimit()
		require.Zero(t, rps)
		require.Equal(t, 1, burst)
	})

	t.Run("missing API_URL", func(t *testing.T) {
		_, err := config.FromEnvironment(map[string]string{})
		require.Error(t, err)
	})

	t.Run("invalid API_URL", func(t *testing.T) {
		_, err := config.FromEnvironment(map[string]string{"API_URL": "not a url"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid config")
	})

	t.Run("unknown store driver", func(t *testing.T) {
		_, err := config.FromEnvironment(map[string]string{
			"API_URL":      "http://localhost:3000",
			"STORE_DRIVER": "etcd",
		})
		require.Error(t, err)
	})

	t.Run("redis driver needs an address", func(t *testing.T) {
		_, err := config.FromEnvironment(map[string]string{
			"API_URL":      "http://localhost:3000",
			"STORE_DRIVER": "redis",
		})
		require.Error(t, err)

		c, err := config.FromEnvironment(map[string]string{
			"API_URL":      "http://localhost:3000",
			"STORE_DRIVER": "redis",
			"REDIS_ADDR":   "localhost:6379",
		})
		require.NoError(t, err)
		require.Equal(t, "localhost:6379", c.GetRedisAddr())
		require.Equal(t, "modasarita:auth", c.GetRedisPrefix())
	})

	t.Run("production settings", func(t *testing.T) {
		c, err := config.FromEnvironment(map[string]string{
			"API_URL":         "https://api.modasarita.mx",
			"ENV":             "PROD",
			"REQUEST_TIMEOUT": "5s",
			"GATEWAY_RPS":     "2.5",
			"GATEWAY_BURST":   "3",
			"LOG_LEVEL":       "warn",
		})
		require.NoError(t, err)
		require.False(t, c.IsDev())
		require.Equal(t, 5*time.Second, c.GetRequestTimeout())
		require.Equal(t, "warn", c.GetLogLevel())

		rps, burst := c.GetRateLimit()
		require.Equal(t, 2.5, rps)
		require.Equal(t, 3, burst)
	})
}
