package cmd

import (
	"context"
	"testing"

	"cubeduel/config"
	"cubeduel/guard"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	cfg := config.NewTestConfig()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"
	ConfigureLogging(cfg)

	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	cfg.LogLevel = "chatty"
	cfg.LogFormat = "text"
	ConfigureLogging(cfg)

	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}

func TestNewGuards_Memory(t *testing.T) {
	throwGuard, cooldowns, closeGuards, err := newGuards(context.Background(), config.NewTestConfig())
	require.NoError(t, err)
	defer closeGuards()

	assert.IsType(t, &guard.MemoryThrowGuard{}, throwGuard)
	assert.IsType(t, &guard.MemoryCooldowns{}, cooldowns)
}
