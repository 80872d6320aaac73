package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/greeting-store/pkg/configuration"
)

func TestPoolConfig_AppliesSizing(t *testing.T) {
	opts := configuration.DatabaseOptions{
		Name:            "greeting",
		Host:            "db.internal",
		Port:            "5433",
		User:            "greeter",
		Password:        "secret",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 30 * time.Second,
	}

	config, err := PoolConfig(opts)
	require.NoError(t, err)
	require.Equal(t, int32(10), config.MaxConns)
	require.Equal(t, int32(2), config.MinConns)
	require.Equal(t, 5*time.Minute, config.MaxConnLifetime)
	require.Equal(t, 30*time.Second, config.MaxConnIdleTime)
	require.Equal(t, "db.internal", config.ConnConfig.Host)
	require.Equal(t, uint16(5433), config.ConnConfig.Port)
	require.Equal(t, "greeting", config.ConnConfig.Database)
}

func TestPoolConfig_RejectsMinAboveMax(t *testing.T) {
	_, err := PoolConfig(configuration.DatabaseOptions{
		Name: "greeting", Host: "localhost", Port: "5432", User: "u", Password: "p",
		MaxConns: 2, MinConns: 3,
	})
	require.Error(t, err)
}
