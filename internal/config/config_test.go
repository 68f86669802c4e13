package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", " key ")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, 16, cfg.GalleryLimit)
	assert.Equal(t, 90*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiTextModel)
	assert.True(t, cfg.AutoDescribe)
	assert.Error(t, cfg.RequireTelegram())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GALLERY_LIMIT", "0")
	t.Setenv("MAX_CONCURRENT", "not a number")
	t.Setenv("AUTO_DESCRIBE", "false")
	t.Setenv("FORMATS_FILE", "formats.yaml")
	t.Setenv("MEDIA_GROUP_DEBOUNCE_MS", "500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 16, cfg.GalleryLimit)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.False(t, cfg.AutoDescribe)
	assert.Equal(t, "formats.yaml", cfg.FormatsFile)
	assert.Equal(t, 500*time.Millisecond, cfg.MediaGroupDebounce)
	assert.NoError(t, cfg.RequireTelegram())
}
