package config

import (
	"fmt"
	"log/slog"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// configPath is the file globalConfig was loaded from.
	configPath string

	// configMutex protects access to globalConfig and configPath.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the global singleton configuration.
// This function should be called once at application startup.
// Subsequent calls are ignored (uses sync.Once internally).
//
// Returns an error if configuration loading or validation fails.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		configMutex.Lock()
		globalConfig = cfg
		configPath = path
		configMutex.Unlock()
	})

	return initErr
}

// GetConfig returns the global configuration instance.
// It returns nil if Initialize has not been called successfully.
// Sweeps call it once per invocation and treat the result as read-only.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// Path returns the file the global configuration was loaded from.
func Path() string {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return configPath
}

// SetConfig sets the global configuration instance.
// This function is primarily intended for testing and should not be used
// in production code. Use Initialize for normal configuration loading.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads the configuration from the specified path.
// The new configuration replaces the global instance only if loading and
// validation succeed; otherwise the previous configuration stays in effect.
// Sweeps already running keep the policy they started with.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	prev := globalConfig
	globalConfig = cfg
	configPath = path
	configMutex.Unlock()

	if prev != nil && prev.Retention.Schedules != cfg.Retention.Schedules {
		slog.Default().With("component", "config").Warn(
			"retention schedules changed; they take effect after a restart",
			"applications", cfg.Retention.Schedules.Applications,
			"accounts", cfg.Retention.Schedules.Accounts,
			"warnings", cfg.Retention.Schedules.Warnings,
		)
	}

	return nil
}

// MustGetConfig returns the global configuration instance.
// It panics if the configuration has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
