package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:5000", cfg.APIURL)
	require.Equal(t, "127.0.0.1:7070", cfg.ControlAddr)
	require.Equal(t, 3*time.Second, cfg.TypingTimeout)
	require.Equal(t, time.Duration(0), cfg.RemoteTypingTimeout)
	require.Equal(t, 5*time.Second, cfg.NoticeDuration)
	require.Empty(t, cfg.AMQPURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_URL", "https://chat.example.com")
	t.Setenv("REMOTE_TYPING_TIMEOUT", "10s")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://chat.example.com", cfg.APIURL)
	require.Equal(t, 10*time.Second, cfg.RemoteTypingTimeout)
	require.True(t, cfg.DebugRoutes)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env:")
}

func TestLoadRejectsZeroTypingTimeout(t *testing.T) {
	t.Setenv("TYPING_TIMEOUT", "0s")

	_, err := Load()
	require.Error(t, err)
}
