// Package config loads the settings of the shopping list programs from a YAML file and the environment, and
// builds the service they describe.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/nicolagi/shopping"
	"github.com/nicolagi/shopping/blob"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration.
type Config struct {
	// DataFile is the JSON list file (default: ~/lib/shopping/einkaufsliste.json)
	DataFile    string            `yaml:"data_file"`
	Store       StoreConfig       `yaml:"store"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Categorizer CategorizerConfig `yaml:"categorizer"`
	Web         WebConfig         `yaml:"web"`
	// Stores are the choices offered by the add form, in display order. Groups by store follow this order.
	Stores []string `yaml:"stores"`
	// Symbols are the emoji offered by the add form.
	Symbols []string  `yaml:"symbols"`
	Log     LogConfig `yaml:"log"`
}

// StoreConfig selects where the list is kept.
type StoreConfig struct {
	// Backend is "json" (DataFile) or "sqlite" (SQLitePath)
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
	// LastWriterWins turns off the revision check on save.
	LastWriterWins bool `yaml:"last_writer_wins"`
}

// ArchiveConfig selects where archived lists go.
type ArchiveConfig struct {
	Driver string   `yaml:"driver"` // fs or s3
	Dir    string   `yaml:"dir"`    // root of the fs driver
	Prefix string   `yaml:"prefix"` // key prefix, e.g., "archiv"
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// CategorizerConfig tunes product categorization. Rules, if given, replace the built-in taxonomy.
type CategorizerConfig struct {
	Policy    string       `yaml:"policy"`
	Threshold float64      `yaml:"threshold"`
	Default   string       `yaml:"default"`
	Rules     []RuleConfig `yaml:"rules"`
}

type RuleConfig struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

type WebConfig struct {
	Listen   string `yaml:"listen"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultDir is where configuration and data live, relative to the home directory.
const DefaultDir = "lib/shopping"

// DefaultPath returns the path of the configuration file read when none is given.
func DefaultPath() string {
	return filepath.Join(homeDir(), DefaultDir, "config.yaml")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	dir := filepath.Join(homeDir(), DefaultDir)
	return &Config{
		DataFile: filepath.Join(dir, "einkaufsliste.json"),
		Store: StoreConfig{
			Backend:    "json",
			SQLitePath: filepath.Join(dir, "einkaufsliste.db"),
		},
		Archive: ArchiveConfig{
			Driver: string(blob.DriverFilesystem),
			Dir:    dir,
			Prefix: "archiv",
			S3:     S3Config{Region: "eu-central-1"},
		},
		Categorizer: CategorizerConfig{
			Policy:    shopping.MatchFuzzy.String(),
			Threshold: shopping.DefaultThreshold,
			Default:   shopping.DefaultCategory,
		},
		Web: WebConfig{
			Listen: "localhost:8501",
		},
		Stores:  []string{"Rewe", "Aldi", "Lidl", "DM", "Edeka", "Kaufland", shopping.DefaultStore},
		Symbols: []string{"🥦", "🍞", "🥛", "🍫", "🍅", "🧻", "🧴", "🍎", "⚙️"},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults. A missing file is not an error: the
// programs work out of the box.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.WithField("path", path).Debug("No config file, using defaults")
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	config.expandHome()
	return config, nil
}

// ApplyEnv overlays the SHOPPING_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SHOPPING_DATA_FILE"); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv("SHOPPING_PASSWORD"); v != "" {
		c.Web.Password = v
	}
	if v := os.Getenv("SHOPPING_LISTEN"); v != "" {
		c.Web.Listen = v
	}
	if v := os.Getenv("SHOPPING_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SHOPPING_S3_BUCKET"); v != "" {
		c.Archive.S3.Bucket = v
		c.Archive.Driver = string(blob.DriverS3)
	}
	if v := os.Getenv("SHOPPING_S3_REGION"); v != "" {
		c.Archive.S3.Region = v
	}
	if v := os.Getenv("SHOPPING_S3_ENDPOINT"); v != "" {
		c.Archive.S3.Endpoint = v
	}
	if v := os.Getenv("SHOPPING_S3_PATH_STYLE"); v != "" {
		c.Archive.S3.PathStyle = strings.EqualFold(v, "true")
	}
	c.expandHome()
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "json":
		if c.DataFile == "" {
			return fmt.Errorf("data_file is required")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required")
		}
	default:
		return fmt.Errorf("store.backend must be json or sqlite, got %q", c.Store.Backend)
	}
	switch blob.Driver(c.Archive.Driver) {
	case blob.DriverFilesystem:
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir is required")
		}
	case blob.DriverS3:
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive.s3.bucket is required")
		}
	case blob.DriverMemory:
	default:
		return fmt.Errorf("archive.driver must be fs or s3, got %q", c.Archive.Driver)
	}
	if _, err := shopping.ParseMatchPolicy(c.Categorizer.Policy); err != nil {
		return fmt.Errorf("categorizer.policy: %w", err)
	}
	if c.Categorizer.Threshold <= 0 || c.Categorizer.Threshold > 1 {
		return fmt.Errorf("categorizer.threshold must be in (0, 1]")
	}
	for i, r := range c.Categorizer.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("categorizer.rules[%d]: category is required", i)
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LogLevel returns the configured logrus level. Call after Validate.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (c *Config) expandHome() {
	c.DataFile = expandHome(c.DataFile)
	c.Store.SQLitePath = expandHome(c.Store.SQLitePath)
	c.Archive.Dir = expandHome(c.Archive.Dir)
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	u, err := user.Current()
	if err != nil {
		log.WithField("cause", err).Warning("Could not get current user, using the working directory")
		return "."
	}
	return u.HomeDir
}
