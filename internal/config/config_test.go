package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	// Defaults apply when nothing is configured
	assert.Equal(t, "profiles", cfg.GetProfilesDir())
	assert.Equal(t, 365, cfg.GetCompareDays())
	assert.Equal(t, 60*time.Second, cfg.GetTimeout())
	assert.Equal(t, "info", cfg.GetLogLevel())
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		Utility: UtilityConfig{
			Username:       "someone@example.com",
			Password:       "hunter2",
			TimeoutSeconds: 30,
		},
		ProfilesDir: "/var/lib/powercompare/profiles",
		CompareDays: 90,
		MQTT: MQTTConfig{
			Enabled: true,
			Broker:  "localhost:1883",
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Utility, loaded.Utility)
	assert.Equal(t, "/var/lib/powercompare/profiles", loaded.GetProfilesDir())
	assert.Equal(t, 90, loaded.GetCompareDays())
	assert.Equal(t, 30*time.Second, loaded.GetTimeout())
	assert.True(t, loaded.MQTT.Enabled)

	// Credentials live in the file, keep it private
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("utility: [not: a map"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}
