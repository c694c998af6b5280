package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-msbt/internal/tag"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	opts, err := config.TextOptions()
	require.NoError(t, err)
	assert.Equal(t, tag.Options{}, opts)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Empty(t, config.Project)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msbtool.yaml")
	data := []byte(`project: Project.msbp
text:
  shorten_tags: true
  color_mode: byColorId
`)
	require.NoError(t, os.WriteFile(path, data, 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Project.msbp"), config.Project)
	assert.Equal(t, "warn", config.Logging.Level)

	opts, err := config.TextOptions()
	require.NoError(t, err)
	assert.True(t, opts.ShortenTags)
	assert.False(t, opts.ShortenPageBreak)
	assert.Equal(t, tag.ByColorID, opts.Colors)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("text: [1, 2"), 0600))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	mode := filepath.Join(dir, "mode.yaml")
	require.NoError(t, os.WriteFile(mode, []byte("text:\n  color_mode: hsv\n"), 0600))
	_, err = LoadConfig(mode)
	assert.Error(t, err)
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "msbtool.yaml")
	config := DefaultConfig()
	config.Project = "/data/Project.msbp"
	config.Text.SkipRuby = true

	require.NoError(t, SaveConfig(config, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}
