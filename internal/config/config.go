// Package config loads the workspace-level settings a symbex run honors
// beyond its CLI flags: ignored directory segments, the watcher's debounce
// window, and the logging defaults. Trimmed from the teacher's sprawling
// Backends/QueryPolicy/LspSupervisor/Daemon/Webhooks/Telemetry schema (none
// of which SPEC_FULL.md's CLI surface has a slot for) down to the fields
// open/query/stats/index-* actually read.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvOverride records an environment variable override that was applied.
type EnvOverride struct {
	EnvVar    string
	Path      string
	Value     interface{}
	FromValue string
}

// LoadResult contains the loaded config plus metadata about how it was loaded.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	EnvOverrides []EnvOverride
	UsedDefaults bool
}

// SupportedConfigVersions lists config schema versions this code can handle.
var SupportedConfigVersions = []int{1}

// Config is symbex's workspace configuration, read from
// <root>/.symbex/config.json if present.
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	// CacheDirName overrides the workspace-local cache directory name
	// (normally ".symbex", matching cmd/symbex's cacheDirName constant).
	CacheDirName string `json:"cacheDirName" mapstructure:"cacheDirName"`

	// GlobalCacheRoot overrides internal/paths.GetCKBHome's default when
	// SYMBEX_HOME is unset, for workspaces that want a shared external-index
	// cache at a path other than ~/.symbex.
	GlobalCacheRoot string `json:"globalCacheRoot" mapstructure:"globalCacheRoot"`

	Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery"`
	Watcher   WatcherConfig   `json:"watcher" mapstructure:"watcher"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// DiscoveryConfig controls internal/discovery.Discover's directory walk.
type DiscoveryConfig struct {
	// IgnoreSegments extends the built-in ignored path-segment set
	// (node_modules, .git, build, .dart_tool, …).
	IgnoreSegments []string `json:"ignoreSegments" mapstructure:"ignoreSegments"`
}

// WatcherConfig controls internal/watcher's debounce window.
type WatcherConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:         1,
		RepoRoot:        ".",
		CacheDirName:    ".symbex",
		GlobalCacheRoot: "",
		Discovery: DiscoveryConfig{
			IgnoreSegments: []string{},
		},
		Watcher: WatcherConfig{
			DebounceMs: 300,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <repoRoot>/.symbex/config.json.
// For env-override detail, use LoadConfigWithDetails.
func LoadConfig(repoRoot string) (*Config, error) {
	result, err := LoadConfigWithDetails(repoRoot)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads configuration and reports how it was loaded:
// which file (if any), and which environment variables overrode it.
func LoadConfigWithDetails(repoRoot string) (*LoadResult, error) {
	result := &LoadResult{}

	if configPath := os.Getenv("SYMBEX_CONFIG_PATH"); configPath != "" {
		cfg, err := loadConfigFromPath(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from SYMBEX_CONFIG_PATH=%s: %w", configPath, err)
		}
		result.Config = cfg
		result.ConfigPath = configPath
	} else {
		v := viper.New()
		v.SetDefault("version", 1)
		v.SetDefault("repoRoot", ".")

		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(filepath.Join(repoRoot, ".symbex"))

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				result.Config = DefaultConfig()
				result.UsedDefaults = true
			} else {
				return nil, err
			}
		} else {
			cfg := *DefaultConfig()
			if err := v.Unmarshal(&cfg); err != nil {
				return nil, err
			}
			result.Config = &cfg
			result.ConfigPath = v.ConfigFileUsed()
		}
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)
	return result, nil
}

func loadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON in config file: %w", err)
	}
	return &cfg, nil
}

type envVarDef struct {
	path    string
	varType string // "string" or "int"
}

var envVarMappings = map[string]envVarDef{
	"SYMBEX_LOG_LEVEL":      {path: "logging.level", varType: "string"},
	"SYMBEX_LOG_FORMAT":     {path: "logging.format", varType: "string"},
	"SYMBEX_CACHE_DIR_NAME": {path: "cacheDirName", varType: "string"},
	"SYMBEX_GLOBAL_CACHE":   {path: "globalCacheRoot", varType: "string"},
	"SYMBEX_WATCH_DEBOUNCE": {path: "watcher.debounceMs", varType: "int"},
}

func applyEnvOverrides(cfg *Config) []EnvOverride {
	var overrides []EnvOverride

	for envVar, def := range envVarMappings {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}

		var parsedValue interface{}
		var err error
		switch def.varType {
		case "string":
			parsedValue = value
		case "int":
			parsedValue, err = strconv.Atoi(value)
			if err != nil {
				continue
			}
		}

		if applyOverride(cfg, def.path, parsedValue) {
			overrides = append(overrides, EnvOverride{
				EnvVar: envVar, Path: def.path, Value: parsedValue, FromValue: value,
			})
		}
	}

	return overrides
}

func applyOverride(cfg *Config, path string, value interface{}) bool {
	parts := strings.Split(path, ".")

	switch parts[0] {
	case "cacheDirName":
		if v, ok := value.(string); ok {
			cfg.CacheDirName = v
			return true
		}
	case "globalCacheRoot":
		if v, ok := value.(string); ok {
			cfg.GlobalCacheRoot = v
			return true
		}
	case "logging":
		if len(parts) < 2 {
			return false
		}
		switch parts[1] {
		case "level":
			if v, ok := value.(string); ok {
				cfg.Logging.Level = v
				return true
			}
		case "format":
			if v, ok := value.(string); ok {
				cfg.Logging.Format = v
				return true
			}
		}
	case "watcher":
		if len(parts) < 2 {
			return false
		}
		if parts[1] == "debounceMs" {
			if v, ok := value.(int); ok {
				cfg.Watcher.DebounceMs = v
				return true
			}
		}
	}

	return false
}

// GetSupportedEnvVars returns every environment variable LoadConfigWithDetails
// will honor.
func GetSupportedEnvVars() []string {
	vars := make([]string, 0, len(envVarMappings))
	for v := range envVarMappings {
		vars = append(vars, v)
	}
	return vars
}

// Save writes the configuration to <repoRoot>/.symbex/config.json.
func (c *Config) Save(repoRoot string) error {
	configPath := filepath.Join(repoRoot, ".symbex", "config.json")
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// Validate checks that the configuration's schema version is one this
// binary understands.
func (c *Config) Validate() error {
	for _, v := range SupportedConfigVersions {
		if c.Version == v {
			return nil
		}
	}
	return &ConfigError{
		Field:   "version",
		Message: fmt.Sprintf("unsupported config version %d, supported versions: %v", c.Version, SupportedConfigVersions),
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
