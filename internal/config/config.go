// Package config loads backend configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cesargomez89/navidrums/internal/constants"
)

// Config holds all application configuration, recognised env keys per
// spec.md §6 plus the knobs the spec leaves unnamed (MIN_FILE_SIZE_KB,
// GLOBAL_TASK_CEILING, BEAM_WIDTH).
type Config struct {
	Host    string
	Port    string
	DataRoot string
	MusicLibraryPath string

	MaxWorkers         int
	MinFileSizeKB      int
	MaxFileSizeMB      int
	CacheTTLDays       int
	AnalysisTimeoutSec int
	GenerationTimeoutSec int
	GlobalTaskCeiling  int
	BeamWidth          int

	LogLevel  string
	LogFormat string
	Debug     bool
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultDataRoot := filepath.Join(home, ".dj-library")

	return &Config{
		Host:                 getEnv("HOST", constants.DefaultHost),
		Port:                 getEnv("PORT", constants.DefaultPort),
		DataRoot:             getEnv("DATA_ROOT", defaultDataRoot),
		MusicLibraryPath:     getEnv("MUSIC_LIBRARY_PATH", ""),
		MaxWorkers:           getEnvInt("MAX_WORKERS", constants.DefaultMaxWorkers),
		MinFileSizeKB:        getEnvInt("MIN_FILE_SIZE_KB", constants.DefaultMinFileSizeKB),
		MaxFileSizeMB:        getEnvInt("MAX_FILE_SIZE_MB", constants.DefaultMaxFileSizeMB),
		CacheTTLDays:         getEnvInt("CACHE_TTL_DAYS", constants.DefaultCacheTTLDays),
		AnalysisTimeoutSec:   getEnvInt("ANALYSIS_TIMEOUT_SEC", constants.DefaultAnalysisTimeoutSec),
		GenerationTimeoutSec: getEnvInt("GENERATION_TIMEOUT_SEC", constants.DefaultGenerationTimeoutSec),
		GlobalTaskCeiling:    getEnvInt("GLOBAL_TASK_CEILING", constants.DefaultGlobalTaskCeiling),
		BeamWidth:            getEnvInt("BEAM_WIDTH", constants.DefaultBeamWidth),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		Debug:                getEnvBool("DEBUG", false),
	}
}

// Validate validates the configuration and returns every problem joined
// into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "PORT cannot be empty")
	} else if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
	}

	if c.DataRoot == "" {
		errs = append(errs, "DATA_ROOT cannot be empty")
	}

	if c.MaxWorkers < 1 {
		errs = append(errs, "MAX_WORKERS must be at least 1")
	}
	if c.MaxFileSizeMB < 1 {
		errs = append(errs, "MAX_FILE_SIZE_MB must be at least 1")
	}
	if c.CacheTTLDays < 0 {
		errs = append(errs, "CACHE_TTL_DAYS must not be negative")
	}
	if c.AnalysisTimeoutSec < 1 {
		errs = append(errs, "ANALYSIS_TIMEOUT_SEC must be at least 1")
	}
	if c.GenerationTimeoutSec < 1 {
		errs = append(errs, "GENERATION_TIMEOUT_SEC must be at least 1")
	}
	if c.GlobalTaskCeiling < 1 {
		errs = append(errs, "GLOBAL_TASK_CEILING must be at least 1")
	}
	if c.BeamWidth < 1 {
		errs = append(errs, "BEAM_WIDTH must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// AnalysisTimeout returns the per-file extraction budget as a Duration.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutSec) * time.Second
}

// GenerationTimeout returns the per-task playlist generation budget.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSec) * time.Second
}

// CacheTTL returns the cache entry retention window.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLDays) * 24 * time.Hour
}

// CacheDir, PresetsDir, ExportsDir locate the writable subdirectories under
// DataRoot, matching the layout in spec.md §6.
func (c *Config) CacheDir() string   { return filepath.Join(c.DataRoot, "cache") }
func (c *Config) PresetsDir() string { return filepath.Join(c.DataRoot, "presets") }
func (c *Config) ExportsDir() string { return filepath.Join(c.DataRoot, "exports") }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
