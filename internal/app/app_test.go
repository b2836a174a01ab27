package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/homeworkbot/core/config"
	coredatabase "github.com/m3rciful/homeworkbot/core/database"
	tg "github.com/m3rciful/homeworkbot/core/telegram"
	"github.com/m3rciful/homeworkbot/internal/config"
	"github.com/m3rciful/homeworkbot/internal/homework"
	"github.com/m3rciful/homeworkbot/internal/storage/filestore"
)

func noLogger(*coreconfig.Config) error { return nil }

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = "test"
	cfg.Homework.SessionTTL = time.Hour
	return cfg
}

func TestNewJSONBackend(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Storage.Backend = config.BackendJSON
	cfg.Storage.JSONPath = filepath.Join(t.TempDir(), "hw.json")
	require.NoError(t, config.Normalize(cfg))

	a, err := New(cfg, Options{LoggerInit: noLogger})
	require.NoError(t, err)
	assert.IsType(t, &filestore.Store{}, a.store)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, cfg.CoreConfig(), opts.Config)
	assert.NotEmpty(t, opts.Middlewares)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, e := range []any{"/start", "/list", "/stats", tele.OnText, tele.OnCallback} {
		assert.True(t, endpoints[e], "missing route %v", e)
	}

	require.NoError(t, opts.OnStart(context.Background(), tg.Runtime{}))
	require.NoError(t, opts.OnStop(context.Background(), tg.Runtime{}))
	require.NoError(t, a.Close())
}

func TestNewSQLBackendImportsLegacyFile(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "homework_data.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"42": {"26.02.2026": "1. A\n2. B"}}`), 0o600))

	cfg := baseConfig(t)
	cfg.Storage.Backend = config.BackendSQL
	cfg.Storage.ImportJSON = legacy
	cfg.Database = coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(dir, "hw.db")}
	require.NoError(t, config.Normalize(cfg))

	a, err := New(cfg, Options{LoggerInit: noLogger})
	require.NoError(t, err)
	defer a.Close()

	entries, err := a.service.List(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"A", "B"}, entries[0].Items)
	assert.Equal(t, homework.MustParseDate("26.02.2026"), entries[0].Date)

	_, err = os.Stat(legacy)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(legacy + filestore.ImportedSuffix)
	assert.NoError(t, err)
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(fakeCarrier{})
	assert.Error(t, err)
	_, err = New(nil, Options{})
	assert.Error(t, err)
}

type fakeCarrier struct{}

func (fakeCarrier) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
