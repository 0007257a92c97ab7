// Package config loads dbtcov configuration from .dbtcov/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the dbtcov configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the dbtcov configuration directory
const ConfigDirName = ".dbtcov"

// Config holds all dbtcov configuration
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Report  ReportConfig  `yaml:"report"`
	Checks  ChecksConfig  `yaml:"checks"`
}

// ProjectConfig holds configuration describing where the dbt project and its
// run artifacts live.
type ProjectConfig struct {
	Dir             string   `yaml:"dir"`
	ArtifactsDir    string   `yaml:"artifacts_dir"`
	ModelPathFilter []string `yaml:"model_path_filter"`
}

// ReportConfig holds configuration for the produced coverage report.
type ReportConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// ChecksConfig holds configuration for CI policy checks.
type ChecksConfig struct {
	FailUnder        float64 `yaml:"fail_under"` // 0 disables the threshold check
	FailOnRegression bool    `yaml:"fail_on_regression"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .dbtcov/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFromPath(filepath.Join(configDir, ConfigFileName))
}

// LoadFromPath reads config from a specific path, merges it with defaults and
// validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindConfigDir locates the .dbtcov directory by walking up from startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .dbtcov directory if it doesn't exist and
// returns its path.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)
	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return configDir, nil
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if !IsValidFormat(cfg.Report.Format) {
		return fmt.Errorf("%w: report format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Report.Format)
	}

	if cfg.Checks.FailUnder < 0 || cfg.Checks.FailUnder > 1 {
		return fmt.Errorf("%w: fail_under must be between 0 and 1, got %f",
			ErrInvalidConfig, cfg.Checks.FailUnder)
	}

	if cfg.Report.Path == "" {
		return fmt.Errorf("%w: report path must not be empty", ErrInvalidConfig)
	}

	return nil
}

// SaveDefault writes the default configuration to .dbtcov/config.yaml in
// workDir, creating the directory if needed.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# dbtcov configuration\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}
