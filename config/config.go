package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"examquiz/logger"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	BindAddress string
	Env         string `validate:"required"`

	DBDriver   string `validate:"oneof=sqlite postgres"`
	DBPath     string `validate:"required_if=DBDriver sqlite"`
	DBHost     string `validate:"required_if=DBDriver postgres"`
	DBPort     string `validate:"required_if=DBDriver postgres"`
	DBUser     string
	DBPassword string
	DBName     string `validate:"required_if=DBDriver postgres"`

	RedisEnabled       bool
	RedisHost          string `validate:"required_if=RedisEnabled true"`
	RedisPort          string `validate:"required_if=RedisEnabled true"`
	RateLimitPerMinute int    `validate:"gte=0"`

	OtelEnabled     bool
	OtelServiceName string `validate:"required"`
	OtelEndpoint    string
	OtelSampleRatio float64 `validate:"gte=0,lte=1"`
	TemplateDir     string
}

var validate = validator.New()

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisEnabled, err := getBool("REDIS_ENABLED", false)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	otelEnabled, err := getBool("OTEL_ENABLED", false)
	if err != nil {
		return nil, err
	}
	sampleRatio, err := getFloat("OTEL_SAMPLER_RATIO", 1.0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		BindAddress: getEnv("BIND_ADDRESS", "localhost"),
		Env:         getEnv("APP_ENV", "development"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:     getEnv("DB_PATH", "exams.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "examquiz"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "examquiz"),

		RedisEnabled:       redisEnabled,
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RateLimitPerMinute: rateLimit,

		OtelEnabled:     otelEnabled,
		OtelServiceName: getEnv("OTEL_SERVICE_NAME", "examquiz"),
		OtelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OtelSampleRatio: sampleRatio,
		TemplateDir:     getEnv("TEMPLATE_DIR", ""),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return c.BindAddress + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getInt, getFloat and getBool fall back to the default only when the variable is unset.
func getInt(key string, defaultValue int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: not an integer", key, value)
	}
	return i, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: not a number", key, value)
	}
	return f, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := getEnv(key, "")
	switch strings.ToLower(value) {
	case "":
		return defaultValue, nil
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s %q: not a boolean", key, value)
}

func InitDB(cfg *Config, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// InitRedis returns nil when Redis is disabled.
func InitRedis(cfg *Config) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: "",
		DB:       0,
	})

	return client
}
