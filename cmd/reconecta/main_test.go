package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconecta/chat/backend/internal/config"
)

func TestApplyFlagsOverridesEnvironment(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Addr: ":8080"},
		AI:     config.AIConfig{Provider: config.ProviderGemini},
		Log:    config.LogConfig{Level: "info"},
	}

	require.NoError(t, applyFlags(cfg, &rootFlags{addr: "9090", provider: "ARK", logLevel: "debug"}))

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, config.ProviderArk, cfg.AI.Provider)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyFlagsRejectsBadValues(t *testing.T) {
	assert.Error(t, applyFlags(&config.Config{}, &rootFlags{provider: "openai"}))
	assert.Error(t, applyFlags(&config.Config{}, &rootFlags{addr: "not a port"}))
}

func TestEvictionInterval(t *testing.T) {
	assert.Zero(t, evictionInterval(0))
	assert.Equal(t, time.Second, evictionInterval(2*time.Second))
	assert.Equal(t, 15*time.Second, evictionInterval(time.Minute))
	assert.Equal(t, time.Minute, evictionInterval(30*time.Minute))
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "chat"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"addr", "provider", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}
