package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_parseFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("json", func(t *testing.T) {
		path := writeTempFile(t, "moments.json", `{
			"mode": "remote",
			"database_dsn": "postgres://db",
			"object_store": "memory",
			"s3_use_ssl": true,
			"session_validity_duration": "45m",
			"upload_concurrency": 8
		}`)
		os.Args = []string{"moments", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, ModeRemote, cfg.Mode)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, ObjectStoreMemory, cfg.ObjectStore)
		assert.True(t, cfg.S3UseSSL)
		assert.Equal(t, 45*time.Minute, cfg.SessionValidityDuration)
		assert.Equal(t, 8, cfg.UploadConcurrency)
		assert.Equal(t, "moments.db", cfg.LocalDSN, "absent keys keep defaults")
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeTempFile(t, "moments.yaml", "mode: remote\nowner_email: me@example.com\nsession_validity_duration: 2h\nlog_backend: zap\n")
		os.Args = []string{"moments", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, ModeRemote, cfg.Mode)
		assert.Equal(t, "me@example.com", cfg.OwnerEmail)
		assert.Equal(t, 2*time.Hour, cfg.SessionValidityDuration)
		assert.Equal(t, "zap", cfg.LogBackend)
		assert.False(t, cfg.S3UseSSL)
	})

	t.Run("no file flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"moments"}

		cfg := &Config{Mode: "local", ExportDir: "x"}
		parseFile(cfg)

		assert.Equal(t, &Config{Mode: "local", ExportDir: "x"}, cfg)
	})

	t.Run("invalid json panics", func(t *testing.T) {
		path := writeTempFile(t, "bad.json", `{ not json`)
		os.Args = []string{"moments", "-c", path}

		require.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"moments", "-c", filepath.Join(t.TempDir(), "nope.yaml")}

		require.Panics(t, func() { parseFile(&Config{}) })
	})
}
