package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ConfigNames lists the file names searched for, in order.
var ConfigNames = []string{
	"feed.yml",
	"feed.yaml",
	"feed.toml",
	".feed.yml",
	".feed.yaml",
	".feed.toml",
}

// FormatOf returns the format implied by a file name.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, parses, and validates a feed configuration file. Environment
// overrides are applied after the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatOf(path))
	if err != nil {
		if fe, ok := errors.As(err); ok {
			return nil, fe.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault finds and loads the configuration starting from the current
// directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration starting from the given directory.
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger loads configuration with layering and logging:
// 1. Global config ($FEED_HOME/config/feed.yml or the XDG equivalent), optional
// 2. Project config found by FindConfigFile, overrides global
// 3. FEED_* environment variables, override all
//
// When no file exists anywhere the defaults plus environment are returned
// together with a CONFIG_NOT_FOUND error so callers can decide whether a
// file is required.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	var cfg Config

	globalPath := globalConfigPath()
	if globalPath != "" {
		logger.WithField("path", globalPath).Debug("Loading global configuration")
		if err := decodeFile(globalPath, &cfg); err != nil {
			logger.WithError(err).Warn("Failed to load global configuration, continuing without it")
		}
	}

	projectPath, findErr := findProjectFile(startDir)
	if projectPath != "" && projectPath != globalPath {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		if err := decodeFile(projectPath, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse project config").
				WithDetail("path", projectPath)
		}
	}

	if err := finish(&cfg); err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(&cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}

	if projectPath == "" && !fileExists(globalPath) {
		return &cfg, findErr
	}
	return &cfg, nil
}

// LoadFromBytes parses configuration from a byte array, then applies
// environment overrides, defaults, and validation.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	var cfg Config
	if err := decode(data, format, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration").
			WithDetail("format", string(format))
	}
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration built from defaults and the environment
// alone.
func Default() (*Config, error) {
	var cfg Config
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config) error {
	if err := ApplyEnv(cfg); err != nil {
		return err
	}
	cfg.SetDefaults()
	return cfg.Validate()
}

// ApplyEnv overrides cfg with FEED_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "parse env")
	}
	return nil
}

// FindConfigFile searches for feed configuration files with the following precedence:
// 1. Current directory up to filesystem root
// 2. Feed config directory ($FEED_HOME/config or ~/.config/feed)
func FindConfigFile(startDir string) (string, error) {
	if path, err := findProjectFile(startDir); err == nil {
		return path, nil
	}
	if path := globalConfigPath(); fileExists(path) {
		return path, nil
	}
	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func findProjectFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range ConfigNames {
			path := filepath.Join(dir, name)
			if fileExists(path) {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func globalConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range []string{"feed.yml", "feed.yaml", "feed.toml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return filepath.Join(dir, "feed.yml")
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// decodeFile layers the file at path over cfg. Missing files are skipped.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return decode(data, FormatOf(path), cfg)
}

// decode unmarshals over cfg, so fields absent from data keep their values.
func decode(data []byte, format Format, cfg *Config) error {
	expanded := []byte(expandEnvVars(string(data)))
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, cfg); err != nil {
			return err
		}
		return collectTOMLExtensions(expanded, cfg)
	default:
		return yaml.Unmarshal(expanded, cfg)
	}
}

var knownKeys = map[string]bool{
	"version":       true,
	"user":          true,
	"channel":       true,
	"notifications": true,
	"remote":        true,
	"media":         true,
	"session":       true,
}

// collectTOMLExtensions fills Extensions with the unknown top-level tables,
// matching what the inline tag does for YAML.
func collectTOMLExtensions(data []byte, cfg *Config) error {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if knownKeys[key] {
			continue
		}
		if cfg.Extensions == nil {
			cfg.Extensions = make(map[string]interface{})
		}
		cfg.Extensions[key] = value
	}
	return nil
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
