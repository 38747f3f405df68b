package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
	"pagefind/internal/search"
)

func TestDefaultConfigMatchesSearchDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	sc := cfg.SearchConfig()
	assert.Equal(t, search.DefaultDebounce, sc.Debounce)
	assert.Equal(t, search.DefaultTestIDAttribute, sc.TestIDAttribute)
	assert.Equal(t, search.DefaultLanguage, sc.Language)
	assert.Equal(t, search.DefaultSingleMatchColor, sc.MatchColor())
	assert.True(t, sc.ShowTooltips)
	assert.True(t, cfg.Search.AriaTemplates)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	svc := NewConfigServiceWithBus(nil, path)

	cfg := DefaultConfig()
	cfg.Search.DebounceMS = 300
	cfg.Search.Language = "python"
	cfg.Highlight.CurrentMatchColor = "#ff0000"
	cfg.Overlay.Addr = "127.0.0.1:7777"
	cfg.Overlay.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Scan.Include = []string{"docs/**/*.html"}
	cfg.Scan.Database = "/tmp/pagefind-scans.db"
	require.NoError(t, svc.Save(cfg))

	loaded, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, 300*time.Millisecond, loaded.SearchConfig().Debounce)
	assert.Equal(t, "#ff0000", loaded.SearchConfig().MatchColor())
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("[search]\ntest_id_attribute = \"data-qa\"\n"), 0644))

	cfg, err := NewConfigService().LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "data-qa", cfg.Search.TestIDAttribute)
	assert.Equal(t, search.DefaultLanguage, cfg.Search.Language)
	assert.Equal(t, 150, cfg.Search.DebounceMS)
	assert.Equal(t, "pagefind.log", cfg.Log.File)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	svc := NewConfigServiceWithBus(nil, filepath.Join(t.TempDir(), FileName))
	cfg, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = svc.LoadFromPath(svc.Path())
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	tests := map[string]string{
		"syntax":   "[search\n",
		"language": "[search]\nlanguage = \"ruby\"\n",
		"debounce": "[search]\ndebounce_ms = -5\n",
		"width":    "[ui]\noutline_text_width = -1\n",
		"rate":     "[scan]\nrequests_per_second = -1\n",
		"glob":     "[scan]\ninclude = [\"docs/[\"]\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := NewConfigServiceWithBus(nil, path).Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadAndSavePublishEvents(t *testing.T) {
	logger := zerolog.Nop()
	bus := eventbus.New(&logger)
	t.Cleanup(bus.Close)

	paths := make(chan string, 2)
	bus.Subscribe(eventbus.EventConfigSaved, func(e eventbus.DomainEvent) {
		paths <- "saved:" + e.(domain.ConfigSavedEvent).Path
	})
	bus.Subscribe(eventbus.EventConfigLoaded, func(e eventbus.DomainEvent) {
		paths <- "loaded:" + e.(domain.ConfigLoadedEvent).Path
	})

	path := filepath.Join(t.TempDir(), FileName)
	svc := NewConfigServiceWithBus(bus, path)
	require.NoError(t, svc.Save(DefaultConfig()))
	_, err := svc.Load()
	require.NoError(t, err)

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case p := <-paths:
			got[p] = true
		case <-time.After(time.Second):
			t.Fatal("config event not delivered")
		}
	}
	assert.True(t, got["saved:"+path])
	assert.True(t, got["loaded:"+path])
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if dir, err := os.UserConfigDir(); err == nil && dir == "/tmp/xdg" {
		assert.Equal(t, filepath.Join("/tmp/xdg", "pagefind", FileName), DefaultPath())
	}
	assert.Equal(t, FileName, filepath.Base(DefaultPath()))
}
