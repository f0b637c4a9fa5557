package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"netinsights/internal/analytics"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ErrInvalid marks a malformed or contradictory configuration value.
// Detected at startup; an invalid config prevents widget registration
// rather than failing per-request.
var ErrInvalid = errors.New("invalid configuration")

// AppConfig holds the complete validated application configuration.
type AppConfig struct {
	IPAMThresholds       analytics.Thresholds
	StaleDataDays        int
	RequiredDeviceFields []string
	RequiredFields       []string
	NamingConventions    map[string]string
	TrendPeriodDays      int
	ForecastHorizonDays  int
	GrowthRateThreshold  float64 // percent per week
	HistoricalPeriodDays int
	CapacityThreshold    float64
	AnomalySigma         float64
	EnableCaching        bool
	CacheTTL             time.Duration
	SnapshotPath         string
	RedisAddr            string
	LogDir               string
}

// Load reads configuration from .env files and environment variables and
// validates it. Lookup order follows the binary directory first, then the
// working directory, with real environment variables overriding both.
func Load() (*AppConfig, error) {
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file in working directory, relying on environment variables")
	}

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		if exeDir != "" {
			logDir = filepath.Join(exeDir, "logs")
		} else {
			logDir = "logs"
		}
	}

	cfg := &AppConfig{
		IPAMThresholds: analytics.Thresholds{
			Warning:  getEnvFloat("IPAM_WARNING_THRESHOLD", 75),
			Critical: getEnvFloat("IPAM_CRITICAL_THRESHOLD", 90),
		},
		StaleDataDays:        getEnvInt("STALE_DATA_DAYS", 30),
		RequiredDeviceFields: getEnvList("REQUIRED_DEVICE_FIELDS", []string{"site", "device_role", "device_type"}),
		RequiredFields:       getEnvList("REQUIRED_FIELDS", []string{"name", "site", "status"}),
		TrendPeriodDays:      getEnvInt("TREND_PERIOD_DAYS", 90),
		ForecastHorizonDays:  getEnvInt("FORECAST_HORIZON_DAYS", 180),
		GrowthRateThreshold:  getEnvFloat("GROWTH_RATE_THRESHOLD", 5.0),
		HistoricalPeriodDays: getEnvInt("HISTORICAL_PERIOD_DAYS", 90),
		CapacityThreshold:    getEnvFloat("CAPACITY_WARNING_THRESHOLD", 80),
		AnomalySigma:         getEnvFloat("ANOMALY_SIGMA", analytics.DefaultAnomalySigma),
		EnableCaching:        getEnvBool("ENABLE_CACHING", true),
		CacheTTL:             time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		SnapshotPath:         getEnv("SNAPSHOT_PATH", "snapshot.json"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		LogDir:               logDir,
	}

	if raw := os.Getenv("NAMING_CONVENTIONS"); raw != "" {
		conventions := make(map[string]string)
		if err := json.Unmarshal([]byte(raw), &conventions); err != nil {
			return nil, fmt.Errorf("%w: NAMING_CONVENTIONS is not a JSON object: %v", ErrInvalid, err)
		}
		cfg.NamingConventions = conventions
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects out-of-range and contradictory values before any widget
// registers.
func (c *AppConfig) Validate() error {
	if err := c.IPAMThresholds.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.StaleDataDays <= 0 {
		return fmt.Errorf("%w: STALE_DATA_DAYS must be positive, got %d", ErrInvalid, c.StaleDataDays)
	}
	if c.TrendPeriodDays <= 0 {
		return fmt.Errorf("%w: TREND_PERIOD_DAYS must be positive, got %d", ErrInvalid, c.TrendPeriodDays)
	}
	if c.ForecastHorizonDays <= 0 {
		return fmt.Errorf("%w: FORECAST_HORIZON_DAYS must be positive, got %d", ErrInvalid, c.ForecastHorizonDays)
	}
	if c.HistoricalPeriodDays <= 0 {
		return fmt.Errorf("%w: HISTORICAL_PERIOD_DAYS must be positive, got %d", ErrInvalid, c.HistoricalPeriodDays)
	}
	if c.CapacityThreshold <= 0 || c.CapacityThreshold > 100 {
		return fmt.Errorf("%w: CAPACITY_WARNING_THRESHOLD %.1f out of range (0, 100]", ErrInvalid, c.CapacityThreshold)
	}
	if c.AnomalySigma <= 0 {
		return fmt.Errorf("%w: ANOMALY_SIGMA must be positive, got %g", ErrInvalid, c.AnomalySigma)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: CACHE_TTL_SECONDS must not be negative", ErrInvalid)
	}

	// Compiling here surfaces bad patterns at startup; the quality
	// validator recompiles its own copy at registration from the same
	// RequiredFields set.
	if _, err := analytics.CompileRules(c.RequiredFields, c.NamingConventions); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// StaleAfter returns the staleness boundary as a duration.
func (c *AppConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleDataDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
