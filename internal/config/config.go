package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Record        RecordConfig        `toml:"record"`
	Batch         BatchConfig         `toml:"batch"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	OutputDir    string `toml:"output_dir"`
	AssetsDir    string `toml:"assets_dir"`
	DatabasePath string `toml:"database_path"`
	EnginesDir   string `toml:"engines_dir"`
}

// RecordConfig holds video capture settings
type RecordConfig struct {
	FPS    int `toml:"fps"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// BatchConfig holds batch sweep settings
type BatchConfig struct {
	RunTimeoutSec int  `toml:"run_timeout_sec"`
	Parallel      int  `toml:"parallel"`
	StopOnError   bool `toml:"stop_on_error"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds dashboard settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			OutputDir:    "output",
			AssetsDir:    "assets",
			DatabasePath: filepath.Join(home, ".phys-bench", "results.db"),
			EnginesDir:   filepath.Join(home, ".phys-bench", "engines.d"),
		},
		Record: RecordConfig{
			FPS:    30,
			Width:  640,
			Height: 480,
		},
		Batch: BatchConfig{
			RunTimeoutSec: 60,
			Parallel:      1,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.OutputDir = ExpandPath(cfg.General.OutputDir)
	cfg.General.AssetsDir = ExpandPath(cfg.General.AssetsDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.EnginesDir = ExpandPath(cfg.General.EnginesDir)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "phys-bench", "config.toml")
}
