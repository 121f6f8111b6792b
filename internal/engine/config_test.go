package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("sample_rate: 44100\nblock_size: 128\ndevice: portaudio\n"), 0o644))

	cfg, err := LoadYAML(path)
	assert.NoError(t, err)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 128, cfg.BlockSize)
	assert.Equal(t, "portaudio", cfg.Device)
	assert.Equal(t, Default().MasterChannels, cfg.MasterChannels)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	assert.NoError(t, os.WriteFile(path, []byte("sample_rate = 96000\ndevice = \"headless\"\n"), 0o644))

	cfg, err := LoadTOML(path)
	assert.NoError(t, err)
	assert.Equal(t, 96000, cfg.SampleRate)
	assert.Equal(t, "headless", cfg.Device)
	assert.Equal(t, Default().BlockSize, cfg.BlockSize)
}

func TestDefaultIsInternallyConsistent(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.SampleRate, 0)
	assert.Greater(t, cfg.BlockSize, 0)
	assert.Greater(t, cfg.MasterChannels, 0)
}
