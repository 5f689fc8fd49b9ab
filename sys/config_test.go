package sys

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable LoadConfig reads, restoring them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", "BOT_TOKEN", "GUILD_ID", "DATABASE_PATH", "SILENT",
		"TIMEZONE", "NATURAL_TIME", "AUTORESPONSE_COOLDOWN", "DELIVERY_TIMEOUT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "token", cfg.Token)
	require.Empty(t, cfg.GuildID)
	require.Equal(t, ProjectName+".db", filepath.Base(cfg.DatabasePath))
	require.Equal(t, 2*time.Second, cfg.AutoResponseCooldown)
	require.Equal(t, 15*time.Second, cfg.DeliveryTimeout)
	require.False(t, cfg.NaturalTime)
	require.Equal(t, time.Local, cfg.Location)
}

func TestLoadConfigBotTokenFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "legacy")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "legacy", cfg.Token)
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"DISCORD_TOKEN=from-file\n"+
			"GUILD_ID=123456789012345678\n"+
			"TIMEZONE=UTC\n"+
			"NATURAL_TIME=true\n"+
			"AUTORESPONSE_COOLDOWN=5s\n"+
			"DATABASE_PATH=/tmp/herald-test.db\n",
	), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Token)
	require.Equal(t, "123456789012345678", cfg.GuildID)
	require.Equal(t, "UTC", cfg.Location.String())
	require.True(t, cfg.NaturalTime)
	require.Equal(t, 5*time.Second, cfg.AutoResponseCooldown)
	require.Equal(t, "/tmp/herald-test.db", cfg.DatabasePath)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing token", env: map[string]string{}},
		{name: "short guild id", env: map[string]string{"DISCORD_TOKEN": "t", "GUILD_ID": "123"}},
		{name: "non-numeric guild id", env: map[string]string{"DISCORD_TOKEN": "t", "GUILD_ID": "abcdefghijklmnopqr"}},
		{name: "bad timezone", env: map[string]string{"DISCORD_TOKEN": "t", "TIMEZONE": "Mars/Olympus"}},
		{name: "bad cooldown", env: map[string]string{"DISCORD_TOKEN": "t", "AUTORESPONSE_COOLDOWN": "soon"}},
		{name: "zero delivery timeout", env: map[string]string{"DISCORD_TOKEN": "t", "DELIVERY_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
		})
	}
}
