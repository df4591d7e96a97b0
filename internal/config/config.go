// Package config loads figdex settings with viper: a figdex.yaml in the
// cache directory, created with defaults on first run. Flags override
// file values at the cmd layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "figdex"
	configType = "yaml"
	configFile = "figdex.yaml"

	keyCacheDir          = "cache_dir"
	keyDBPrefix          = "db_prefix"
	keyStalenessWindow   = "staleness_window"
	keyRetryInterval     = "retry_interval"
	keyPropertyThreshold = "property_change_threshold"
	keySearchLimit       = "search_limit"
)

// defaultConfigYAML is written on first run so the knobs are discoverable.
const defaultConfigYAML = `# figdex configuration

# Directory holding per-document index databases.
# cache_dir: ~/.figdex

# Filename prefix for partition files (<prefix>-<document-id>.db).
db_prefix: figdex

# Maximum age of a successful sync before queries refresh.
staleness_window: 5m

# Floor between sync attempts while the index is stale.
retry_interval: 60s

# A change notification invalidates the index when it exceeds this many
# aggregated property changes (node creations/deletions always do).
property_change_threshold: 5

# Default result cap for searches.
search_limit: 20
`

// Config is the resolved figdex configuration.
type Config struct {
	CacheDir                string
	DBPrefix                string
	StalenessWindow         time.Duration
	RetryInterval           time.Duration
	PropertyChangeThreshold int
	SearchLimit             int
}

// DefaultCacheDir is ~/.figdex, falling back to the working directory when
// the home directory cannot be resolved.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".figdex"
	}
	return filepath.Join(home, ".figdex")
}

// Load reads (creating if absent) figdex.yaml from cacheDir.
func Load(cacheDir string) (Config, error) {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("create cache dir: %w", err)
	}
	if err := ensureDefaultFile(cacheDir); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault(keyDBPrefix, "figdex")
	v.SetDefault(keyStalenessWindow, "5m")
	v.SetDefault(keyRetryInterval, "60s")
	v.SetDefault(keyPropertyThreshold, 5)
	v.SetDefault(keySearchLimit, 20)
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(cacheDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		CacheDir:                cacheDir,
		DBPrefix:                v.GetString(keyDBPrefix),
		StalenessWindow:         v.GetDuration(keyStalenessWindow),
		RetryInterval:           v.GetDuration(keyRetryInterval),
		PropertyChangeThreshold: v.GetInt(keyPropertyThreshold),
		SearchLimit:             v.GetInt(keySearchLimit),
	}
	if dir := v.GetString(keyCacheDir); dir != "" {
		cfg.CacheDir = dir
	}
	return cfg, nil
}

func ensureDefaultFile(cacheDir string) error {
	path := filepath.Join(cacheDir, configFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
