package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/homeworkbot/core/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: abc\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, BackendSQL, cfg.Storage.Backend)
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Homework.SessionTTL)
	assert.Equal(t, time.Minute, cfg.Homework.SweepInterval)
	assert.False(t, cfg.Homework.SharedList)
}

func TestLoadJSONBackend(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
  admin_id: 7
storage:
  backend: JSON
homework:
  shared_list: true
  session_ttl: 0s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, "data/homework.json", cfg.Storage.JSONPath)
	assert.True(t, cfg.Homework.SharedList)
	assert.Zero(t, cfg.Homework.SessionTTL)
	assert.Zero(t, cfg.Homework.SweepInterval)
	assert.Equal(t, int64(7), cfg.Telegram.AdminID)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: abc\nstorage:\n  backend: sql\n")
	t.Setenv("STORAGE_BACKEND", "json")
	t.Setenv("STORAGE_JSON_PATH", "/tmp/hw.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/hw.json", cfg.Storage.JSONPath)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]string{
		"missing token":    "storage:\n  backend: sql\n",
		"unknown backend":  "telegram:\n  token: abc\nstorage:\n  backend: redis\n",
		"import into json": "telegram:\n  token: abc\nstorage:\n  backend: json\n  import_json: old.json\n",
		"bad driver":       "telegram:\n  token: abc\ndatabase:\n  driver: mysql\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
	assert.Error(t, Normalize(nil))
}
