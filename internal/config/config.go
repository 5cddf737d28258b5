package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AnishMulay/memscope/internal/executor"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidStepDelay = errors.New("invalid step_delay")
	ErrInvalidFileSize  = errors.New("file_size must be positive")
	ErrMissingListen    = errors.New("listen address is required")
)

type Config struct {
	NodeID     string `yaml:"node_id"`
	Listen     string `yaml:"listen"`
	GRPCListen string `yaml:"grpc_listen"`
	LogDir     string `yaml:"log_dir"`
	LogLevel   string `yaml:"log_level"`
	StepDelay  string `yaml:"step_delay"`
	FileSize   int    `yaml:"file_size"`
}

func Default() *Config {
	return &Config{
		NodeID:     "memscope",
		Listen:     "localhost:8765",
		GRPCListen: "",
		LogDir:     "./data/logs",
		LogLevel:   "INFO",
		StepDelay:  "500ms",
		FileSize:   executor.DefaultFileSize,
	}
}

// LoadConfig reads the YAML config at path. A missing file is created with
// the defaults.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return ErrMissingListen
	}
	if c.FileSize <= 0 {
		return ErrInvalidFileSize
	}
	if _, err := c.StepDelayDuration(); err != nil {
		return err
	}
	return nil
}

func (c *Config) StepDelayDuration() (time.Duration, error) {
	if c.StepDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StepDelay)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStepDelay, c.StepDelay)
	}
	return d, nil
}
