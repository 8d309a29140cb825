package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env              string
	Port             string
	GRPCPort         string
	RedisAddr        string
	JWTSecret        string
	PrizeTableFile   string
	SchedulerEnabled bool
	Database         DatabaseConfig
	Ledger           LedgerConfig
	Storage          StorageConfig
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LedgerConfig struct {
	Isolation          sql.IsolationLevel
	MaxRetries         int
	MaxWithdrawalCoins int64
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// LoadEnv loads a .env file from the working directory or its parent.
// A missing file is not an error; the process environment is used instead.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			return
		}
	}
}

func Load() (*Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	isolation, err := parseIsolation(getEnvString("LEDGER_ISOLATION", "serializable"))
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(getEnvString("DB_DRIVER", "mysql"))
	switch driver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return &Config{
		Env:              getEnvString("APP_ENV", "development"),
		Port:             getEnvString("PORT", "8080"),
		GRPCPort:         getEnvString("GRPC_PORT", "50051"),
		RedisAddr:        getEnvString("REDIS_URL", "localhost:6379"),
		JWTSecret:        getEnvString("JWT_SECRET", ""),
		PrizeTableFile:   getEnvString("PRIZE_TABLE_FILE", ""),
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		Database: DatabaseConfig{
			Driver:          driver,
			DSN:             getEnvString("DB_DSN", ""),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvString("DB_PORT", defaultPort(driver)),
			User:            getEnvString("DB_USER", ""),
			Password:        getEnvString("DB_PASSWORD", ""),
			Name:            getEnvString("DB_NAME", "tournament_ledger"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
		},
		Ledger: LedgerConfig{
			Isolation:          isolation,
			MaxRetries:         getEnvInt("LEDGER_MAX_RETRIES", 3),
			MaxWithdrawalCoins: getEnvInt64("WITHDRAWAL_MAX_COINS", 1200),
		},
		Storage: StorageConfig{
			Bucket:          getEnvString("S3_BUCKET", ""),
			Region:          getEnvString("S3_REGION", "auto"),
			Endpoint:        getEnvString("S3_ENDPOINT", ""),
			AccessKeyID:     getEnvString("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnvString("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnvString("S3_PUBLIC_BASE_URL", ""),
		},
	}, nil
}

// DSNFor composes a driver specific DSN unless one was given explicitly.
func (c DatabaseConfig) DSNFor() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Name)
	case "sqlite":
		return c.Name + ".db"
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.Name)
	}
}

func defaultPort(driver string) string {
	if driver == "postgres" {
		return "5432"
	}
	return "3306"
}

func parseIsolation(value string) (sql.IsolationLevel, error) {
	switch strings.ToLower(value) {
	case "serializable":
		return sql.LevelSerializable, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "default":
		return sql.LevelDefault, nil
	}
	return sql.LevelDefault, fmt.Errorf("invalid LEDGER_ISOLATION %q", value)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
