package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	v.Set("database_url", "file:test.db")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "file:test.db", cfg.DatabaseURL)
	assert.Equal(t, 4, cfg.IngestWorkerPool)
	assert.Equal(t, "none", cfg.LexicalBackend)
	assert.Equal(t, "none", cfg.VectorBackend)
	assert.InDelta(t, 0.35, cfg.HybridWeights.Semantic, 0.0001)
	assert.Equal(t, 5, cfg.PublicSearchLimitCap)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	v := viper.New()
	_, err := Load(v)
	require.Error(t, err)
}

func TestDiagnosticsFlagsLoopbackPublicBase(t *testing.T) {
	v := viper.New()
	v.Set("database_url", "file:test.db")
	v.Set("public_base_url", "http://127.0.0.1:8080")

	cfg, err := Load(v)
	require.NoError(t, err)

	warnings := cfg.Diagnostics()
	assert.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "127.0.0.1")
}
