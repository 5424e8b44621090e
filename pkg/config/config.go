package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type (
	CatalogConfig struct {
		BaseURL   string        `yaml:"base_url"`
		CoversURL string        `yaml:"covers_url"`
		Language  string        `yaml:"language"`
		FeedLimit int           `yaml:"feed_limit"`
		Timeout   time.Duration `yaml:"timeout"`
	}

	RetryConfig struct {
		Attempts  int           `yaml:"attempts"`
		BaseDelay time.Duration `yaml:"base_delay"`
		MaxDelay  time.Duration `yaml:"max_delay"`
	}

	ReaderConfig struct {
		Window      int         `yaml:"window"`
		Concurrency int         `yaml:"concurrency"`
		Retry       RetryConfig `yaml:"retry"`
	}

	RecentConfig struct {
		Capacity int `yaml:"capacity"`
	}

	StorageConfig struct {
		Path string `yaml:"path"`
	}

	Config struct {
		Catalog CatalogConfig `yaml:"catalog"`
		Reader  ReaderConfig  `yaml:"reader"`
		Recent  RecentConfig  `yaml:"recent"`
		Storage StorageConfig `yaml:"storage"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

// Dir is where configuration, the database and logs live by default.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mangas"
	}
	return filepath.Join(home, ".mangas")
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:   "https://api.mangadex.org",
			CoversURL: "https://uploads.mangadex.org/covers",
			Language:  "en",
			FeedLimit: 500,
			Timeout:   15 * time.Second,
		},
		Reader: ReaderConfig{
			Window:      5,
			Concurrency: 3,
			Retry: RetryConfig{
				Attempts:  3,
				BaseDelay: 250 * time.Millisecond,
				MaxDelay:  2 * time.Second,
			},
		},
		Recent:  RecentConfig{Capacity: 20},
		Storage: StorageConfig{Path: filepath.Join(Dir(), "mangas.db")},
		Logging: LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "normal"},
			FileLogger: LoggerConfig{
				Level:       "none",
				Destination: filepath.Join(Dir(), "mangaread.log"),
				Mode:        "append",
			},
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration file: %w", err)
	}
	return parse(data, cfg)
}

func parse(data []byte, cfg *Config) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}
	cfg.Storage.Path = expandPath(cfg.Storage.Path)
	cfg.Logging.FileLogger.Destination = expandPath(cfg.Logging.FileLogger.Destination)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.Catalog.BaseURL == "" {
		problems = append(problems, "catalog.base_url is required")
	}
	if c.Catalog.FeedLimit < 1 || c.Catalog.FeedLimit > 500 {
		problems = append(problems, "catalog.feed_limit must be between 1 and 500")
	}
	if c.Reader.Window < 1 {
		problems = append(problems, "reader.window must be positive")
	}
	if c.Reader.Concurrency < 1 {
		problems = append(problems, "reader.concurrency must be positive")
	}
	if c.Reader.Retry.Attempts < 1 {
		problems = append(problems, "reader.retry.attempts must be positive")
	}
	if c.Recent.Capacity < 1 {
		problems = append(problems, "recent.capacity must be positive")
	}
	if c.Storage.Path == "" {
		problems = append(problems, "storage.path is required")
	}
	for _, l := range []struct {
		name  string
		level string
	}{{"console", c.Logging.ConsoleLogger.Level}, {"file", c.Logging.FileLogger.Level}} {
		switch l.level {
		case "", "none", "normal", "debug":
		default:
			problems = append(problems, fmt.Sprintf("logging.%s.level must be one of none, normal, debug", l.name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Dump renders the configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}

// expandPath replaces leading "~" with user home dir
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
