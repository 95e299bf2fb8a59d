package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API        APIConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Generator  GeneratorConfig
	RateLimit  RateLimitConfig
	Security   SecurityConfig
	Monitoring MonitoringConfig
}

type APIConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	URL          string
	MaxConns     int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type GeneratorConfig struct {
	CurrentChromeMajor int
	SeedCatalogOnBoot  bool
	DatasetDir         string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type SecurityConfig struct {
	CORSOrigins    []string
	TrustedProxies []string
}

type MonitoringConfig struct {
	EnableMetrics bool
	LogLevel      string
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			Port:        getEnv("API_PORT", "7070"),
			Host:        getEnv("API_HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", "postgresql://persona:@localhost:5432/persona?sslmode=disable"),
			MaxConns:     getEnvInt("DB_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 24*time.Hour),
		},
		Generator: GeneratorConfig{
			CurrentChromeMajor: getEnvInt("CURRENT_CHROME_MAJOR", 141),
			SeedCatalogOnBoot:  getEnvBool("SEED_CATALOG_ON_BOOT", true),
			DatasetDir:         getEnv("CATALOG_DATASET_DIR", ""),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 300),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Security: SecurityConfig{
			CORSOrigins:    getEnvSlice("CORS_ORIGINS", []string{"*"}),
			TrustedProxies: getEnvSlice("TRUSTED_PROXIES", []string{}),
		},
		Monitoring: MonitoringConfig{
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Generator.CurrentChromeMajor <= 0 {
		return fmt.Errorf("CURRENT_CHROME_MAJOR must be positive")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
