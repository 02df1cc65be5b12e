package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config carries every tunable the service reads from the environment.
// Values not present in the environment fall back to the platform defaults.
type Config struct {
	Port      string
	JWTSecret string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr string

	// CommissionRate is the platform's cut of each settled request.
	CommissionRate decimal.Decimal

	// Login throttle policy.
	LoginMaxAttempts     int
	LoginLockoutDuration time.Duration
	LoginAttemptWindow   time.Duration
	LoginCleanupInterval time.Duration
}

// Load reads .env if present and builds the Config from the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := Config{
		Port:      getenv("PORT", "8080"),
		JWTSecret: getenv("JWT_SECRET", "supersecret"),

		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", ""),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBName:     getenv("DB_NAME", "boosthive"),

		RedisAddr: getenv("REDIS_ADDR", "127.0.0.1:6379"),

		CommissionRate: decimalEnv("COMMISSION_RATE", "0.10"),

		LoginMaxAttempts:     intEnv("LOGIN_MAX_ATTEMPTS", 3),
		LoginLockoutDuration: minutesEnv("LOGIN_LOCKOUT_MINUTES", 5),
		LoginAttemptWindow:   minutesEnv("LOGIN_ATTEMPT_WINDOW_MINUTES", 15),
		LoginCleanupInterval: minutesEnv("LOGIN_CLEANUP_INTERVAL_MINUTES", 10),
	}
	return cfg
}

// DatabaseURL builds the Postgres DSN from the individual DB_* settings.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("config: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func minutesEnv(key string, fallback int) time.Duration {
	return time.Duration(intEnv(key, fallback)) * time.Minute
}

func decimalEnv(key, fallback string) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}
