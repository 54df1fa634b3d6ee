package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config is the full process configuration. It is built once at startup and
// handed to the pieces that need it; nothing reads it from package state.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Routes   RoutesConfig   `yaml:"routes"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Mode           string   `yaml:"mode"` // gin mode: debug, release, test
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"` // 0 disables limiting
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

type LogConfig struct {
	File   string `yaml:"file"`
	Level  string `yaml:"level"`
	Stdout bool   `yaml:"stdout"`
}

// RoutesConfig holds read-visibility defaults.
type RoutesConfig struct {
	// IncludeInactive is the default for reads that do not pass
	// include_inactive explicitly.
	IncludeInactive bool `yaml:"include_inactive"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           "0.0.0.0:5000",
			Mode:           "release",
			RateLimitBurst: 20,
		},
		Database: DatabaseConfig{
			Driver:      DriverPostgres,
			PGDriver:    "pgx",
			Host:        "localhost",
			Port:        "5432",
			User:        "postgres",
			Name:        "transport_routes",
			SSLMode:     "disable",
			TimeZone:    "UTC",
			Path:        "transport_routes.db",
			AutoMigrate: true,
		},
		Log: LogConfig{
			File:   "./logs/app.log",
			Level:  "info",
			Stdout: true,
		},
		Routes: RoutesConfig{IncludeInactive: true},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then a .env file, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.Mode = getEnv("GIN_MODE", cfg.Server.Mode)
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	cfg.Server.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.Server.RateLimitRPS)
	cfg.Server.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.Server.RateLimitBurst)

	db := &cfg.Database
	db.Driver = getEnv("DB_DRIVER", db.Driver)
	db.PGDriver = getEnv("DB_PG_DRIVER", db.PGDriver)
	db.Host = getEnv("DB_HOST", db.Host)
	db.Port = getEnv("DB_PORT", db.Port)
	db.User = getEnv("DB_USER", db.User)
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.Name = getEnv("DB_NAME", db.Name)
	db.SSLMode = getEnv("DB_SSLMODE", db.SSLMode)
	db.TimeZone = getEnv("DB_TIMEZONE", db.TimeZone)
	db.Path = getEnv("DB_PATH", db.Path)
	db.Pooled = getEnvBool("DB_POOLED", db.Pooled)
	db.AutoMigrate = getEnvBool("DB_AUTO_MIGRATE", db.AutoMigrate)

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Stdout = getEnvBool("LOG_STDOUT", cfg.Log.Stdout)

	cfg.Routes.IncludeInactive = getEnvBool("ROUTES_INCLUDE_INACTIVE", cfg.Routes.IncludeInactive)
}

// Validate checks structure only; it never contacts the database.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres, mysql or sqlite)", c.Database.Driver)
	}
	if c.Database.Driver == DriverPostgres && c.Database.PGDriver != "pgx" && c.Database.PGDriver != "postgres" {
		return fmt.Errorf("unsupported DB_PG_DRIVER %q (want pgx or postgres)", c.Database.PGDriver)
	}
	if c.Server.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return defaultValue
	}
	return f
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
