// Package engine holds the illustrative top-level wiring: the
// configuration shape cmd/audioengine loads, mirroring how the
// teacher's emu.Config/ui.Config pair configures a Machine and its
// App.
package engine

import (
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the engine's complete startup configuration: transport
// geometry, queue sizing, and which output device to open.
type Config struct {
	SampleRate           int     `yaml:"sample_rate" toml:"sample_rate"`
	BlockSize            int     `yaml:"block_size" toml:"block_size"`
	MasterChannels       int     `yaml:"master_channels" toml:"master_channels"`
	Bpm                  float64 `yaml:"bpm" toml:"bpm"`
	CommandQueueCapacity int     `yaml:"command_queue_capacity" toml:"command_queue_capacity"`
	StatusQueueCapacity  int     `yaml:"status_queue_capacity" toml:"status_queue_capacity"`
	Device               string  `yaml:"device" toml:"device"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		SampleRate:           48000,
		BlockSize:            256,
		MasterChannels:       2,
		Bpm:                  120,
		CommandQueueCapacity: 256,
		StatusQueueCapacity:  256,
		Device:               "oto",
	}
}

// LoadYAML reads a Config from a YAML file, starting from Default so
// missing fields keep their defaults.
func LoadYAML(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadTOML reads a Config from a TOML file, starting from Default so
// missing fields keep their defaults.
func LoadTOML(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
