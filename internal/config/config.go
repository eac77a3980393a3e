package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/polarlab/polarlab/internal/voxel"
)

type Config struct {
	World   WorldConfig   `toml:"world"`
	Tick    TickConfig    `toml:"tick"`
	Scene   SceneConfig   `toml:"scene"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
	Console ConsoleConfig `toml:"console"`
}

type WorldConfig struct {
	TableCapacity    int       `toml:"table_capacity"`
	BucketCount      int       `toml:"bucket_count"` // 0 = table_capacity
	BlockSize        [3]uint32 `toml:"block_size"`
	Bias             int32     `toml:"bias"`
	RegistryCapacity int       `toml:"registry_capacity"` // includes reserved index 0
}

type TickConfig struct {
	Rate               time.Duration `toml:"rate"`
	MaxCommandsPerTick int           `toml:"max_commands_per_tick"`
	CommandQueueSize   int           `toml:"command_queue_size"`
	SnapshotLogEvery   uint64        `toml:"snapshot_log_every"` // ticks between snapshot log lines
}

type SceneConfig struct {
	File   string `toml:"file"`   // YAML scene, empty = none
	Script string `toml:"script"` // Lua scene script, empty = none
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Listen string `toml:"listen"` // empty disables /metrics
}

type ConsoleConfig struct {
	Enabled     bool   `toml:"enabled"`
	HistoryFile string `toml:"history_file"`
	Prompt      string `toml:"prompt"`
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	w := c.World
	switch {
	case w.TableCapacity <= 0:
		return fmt.Errorf("world.table_capacity must be positive, got %d", w.TableCapacity)
	case w.BucketCount < 0:
		return fmt.Errorf("world.bucket_count must not be negative, got %d", w.BucketCount)
	case w.RegistryCapacity < 2:
		return fmt.Errorf("world.registry_capacity must be at least 2, got %d", w.RegistryCapacity)
	case w.Bias < 0:
		return fmt.Errorf("world.bias must not be negative, got %d", w.Bias)
	}
	for i, b := range w.BlockSize {
		if b == 0 || int64(b) <= int64(w.Bias) {
			return fmt.Errorf("world.block_size[%d] = %d must exceed bias %d", i, b, w.Bias)
		}
	}
	block := voxel.Key{X: w.BlockSize[0], Y: w.BlockSize[1], Z: w.BlockSize[2]}
	if err := voxel.CheckBlock(block); err != nil {
		return fmt.Errorf("world.block_size: %w", err)
	}
	if c.Tick.Rate <= 0 {
		return fmt.Errorf("tick.rate must be positive, got %s", c.Tick.Rate)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			TableCapacity:    1000,
			BucketCount:      1000,
			BlockSize:        [3]uint32{200, 200, 200},
			Bias:             100,
			RegistryCapacity: 166,
		},
		Tick: TickConfig{
			Rate:               50 * time.Millisecond,
			MaxCommandsPerTick: 32,
			CommandQueueSize:   128,
			SnapshotLogEvery:   200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Console: ConsoleConfig{
			Enabled:     true,
			HistoryFile: ".polarlab_history",
			Prompt:      "polarlab> ",
		},
	}
}
