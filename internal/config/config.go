package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Project   ProjectConfig   `yaml:"project"`
	Detection DetectionConfig `yaml:"detection"`
	Export    ExportConfig    `yaml:"export"`
}

// ServerConfig holds configuration for the HTTP API
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	StaticDir   string `yaml:"static_dir"`
	Development bool   `yaml:"development"`
}

// ProjectConfig holds dataset defaults
type ProjectConfig struct {
	Classes          []string `yaml:"classes"`
	ClassesFile      string   `yaml:"classes_file"`
	RestoreOverwrite bool     `yaml:"restore_overwrite"`
}

// DetectionConfig selects and tunes the detection backend
type DetectionConfig struct {
	Backend     string        `yaml:"backend"`
	URL         string        `yaml:"url"`
	Models      []string      `yaml:"models"`
	Confidence  float64       `yaml:"confidence"`
	SendFormat  string        `yaml:"send_format"`
	SendSize    int           `yaml:"send_size"`
	SendQuality int           `yaml:"send_quality"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ExportConfig holds configuration for dataset export
type ExportConfig struct {
	DefaultFormat string `yaml:"default_format"`
}

// Detection backends
const (
	BackendNone     = "none"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        "127.0.0.1:8000",
			StaticDir:   "",
			Development: false,
		},
		Project: ProjectConfig{
			Classes:          []string{"class0", "class1", "class2"},
			RestoreOverwrite: true,
		},
		Detection: DetectionConfig{
			Backend:     BackendNone,
			URL:         "",
			Models:      []string{"qwen2.5vl:7b", "llava:13b"},
			Confidence:  0.5,
			SendFormat:  "jpg",
			SendSize:    1536,
			SendQuality: 85,
			Timeout:     5 * time.Minute,
		},
		Export: ExportConfig{
			DefaultFormat: "YOLO (.txt)",
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load is LoadFromFile, except that a missing file yields the defaults
func Load(filename string) (*Config, error) {
	config, err := LoadFromFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if len(c.Project.Classes) == 0 && c.Project.ClassesFile == "" {
		return fmt.Errorf("project.classes cannot be empty")
	}

	switch strings.ToLower(c.Detection.Backend) {
	case "", BackendNone, BackendOllama, BackendLlamaCpp:
	default:
		return fmt.Errorf("detection.backend must be one of none, ollama, llamacpp")
	}

	if c.Detection.Confidence < 0 || c.Detection.Confidence > 1 {
		return fmt.Errorf("detection.confidence must be between 0 and 1")
	}

	switch strings.ToLower(c.Detection.SendFormat) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("detection.send_format must be one of jpg, png, webp")
	}

	if c.Detection.SendQuality < 1 || c.Detection.SendQuality > 100 {
		return fmt.Errorf("detection.send_quality must be between 1 and 100")
	}

	if c.Detection.SendSize < 0 {
		return fmt.Errorf("detection.send_size cannot be negative")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./labeller.yaml"
	}
	return filepath.Join(home, ".config", "dataset-labeller", "config.yaml")
}
