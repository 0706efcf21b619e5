package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 1883, cfg.Port)
	require.True(t, cfg.WebsocketDisabled)
	require.False(t, cfg.AllowAnonymous)
}

func TestParseIntoOverridesDefaults(t *testing.T) {
	cfg := Default()

	input := strings.NewReader(`
# comment line
port 1884
websocket_port 8083
host 127.0.0.1
allow_anonymous true
allow_zero_byte_client_id false
bogus_key ignored
`)
	require.NoError(t, parseInto(cfg, input))

	require.Equal(t, 1884, cfg.Port)
	require.False(t, cfg.WebsocketDisabled)
	require.Equal(t, 8083, cfg.WebsocketPort)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.True(t, cfg.AllowAnonymous)
	require.False(t, cfg.AllowZeroByteClientID)
}

func TestParseIntoWebsocketDisabled(t *testing.T) {
	cfg := Default()
	require.NoError(t, parseInto(cfg, strings.NewReader("websocket_port disabled\n")))
	require.True(t, cfg.WebsocketDisabled)
}

func TestParseIntoBadgerDir(t *testing.T) {
	cfg := Default()
	cfg.AllowAnonymous = true
	require.NoError(t, parseInto(cfg, strings.NewReader("badger_dir /var/lib/ripplemq\n")))
	require.Equal(t, "/var/lib/ripplemq", cfg.BadgerDir)
}

func TestValidateRequiresPasswordFileUnlessAnonymous(t *testing.T) {
	cfg := Default()
	cfg.AllowAnonymous = false
	cfg.PasswordFile = ""
	require.Error(t, cfg.Validate())

	cfg.AllowAnonymous = true
	require.NoError(t, cfg.Validate())
}
