package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_RequiresDSNOrPassword(t *testing.T) {
	t.Setenv("TRUFFLE_DB_URL", "")
	t.Setenv("DB_PASSWORD", "")
	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}

func TestLoadConfigFromEnv_DSNTakesPrecedence(t *testing.T) {
	t.Setenv("TRUFFLE_DB_URL", "postgres://example")
	t.Setenv("DB_PASSWORD", "")
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://example", cfg.ConnString())
}

func TestLoadConfigFromEnv_IdleAboveOpenAfterLoadIsNotRechecked(t *testing.T) {
	t.Setenv("TRUFFLE_DB_URL", "")
	t.Setenv("DB_PASSWORD", "secret")
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	cfg.MaxIdleConns = cfg.MaxOpenConns + 1
	// LoadConfigFromEnv checks idle against open only for its own fixed pool
	// sizes; a value changed after loading is not checked again.
	assert.Greater(t, cfg.MaxIdleConns, cfg.MaxOpenConns)
}

func TestConnString_BuildsFromDiscreteFields(t *testing.T) {
	cfg := Config{
		Host:     "db.internal",
		Port:     5432,
		User:     "truffle",
		Password: "secret",
		Database: "truffle",
		SSLMode:  "require",
	}
	conn := cfg.ConnString()
	assert.Contains(t, conn, "db.internal:5432")
	assert.Contains(t, conn, "/truffle")
	assert.Contains(t, conn, "sslmode=require")
}
