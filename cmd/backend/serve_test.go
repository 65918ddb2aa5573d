package main

import (
	"testing"
	"time"

	"shawty-backend/internal/config"
	"shawty-backend/internal/repository/memory"
	"shawty-backend/internal/shortcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStorage(t *testing.T) {
	storage, closeStorage, err := openStorage(&config.Database{Driver: driverMemory}, zap.NewNop())
	require.NoError(t, err)
	defer closeStorage()
	assert.IsType(t, &memory.MemStorage{}, storage)

	_, _, err = openStorage(&config.Database{Driver: "sqlite"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestOpenRedis_Disabled(t *testing.T) {
	assert.Nil(t, openRedis(&config.Redis{Enabled: false}, zap.NewNop()))
}

func TestProcessorConfig(t *testing.T) {
	cfg := &config.Config{
		HTTPServer: config.HTTPServer{ShutdownTimeout: 5 * time.Second},
		Analytics:  config.Analytics{Workers: 8, RetryDelay: time.Second, DevCountry: "Localhost"},
	}
	pc := processorConfig(cfg)
	assert.Equal(t, 8, pc.WorkerCount)
	assert.Equal(t, 1000, pc.BufferSize)
	assert.Equal(t, time.Second, pc.RetryDelay)
	assert.Equal(t, "Localhost", pc.DevCountry)
	assert.Equal(t, 5*time.Second, pc.ShutdownTimeout)
}

func TestWarmAllocator(t *testing.T) {
	store := memory.New()
	allocator := shortcode.NewAllocator(6, 10, 1000, 0.01)
	require.NoError(t, warmAllocator(store, allocator, zap.NewNop()))
}
