package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	DBURL string
	Port  string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	RedisAddr string
	RedisPass string
	RedisDB   int

	SessionReapInterval time.Duration

	GinMode  string
	LogLevel string
}

// LoadEnv reads an optional .env file and then the process environment.
// DB_URL, ACCESS_SECRET and REFRESH_SECRET are required.
func LoadEnv() (*Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	return FromEnviron()
}

// FromEnviron builds an Env from the current process environment only.
func FromEnviron() (*Env, error) {
	env := &Env{
		DBURL:         os.Getenv("DB_URL"),
		Port:          getEnv("PORT", "5000"),
		AccessSecret:  os.Getenv("ACCESS_SECRET"),
		RefreshSecret: os.Getenv("REFRESH_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		GinMode:       os.Getenv("GIN_MODE"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	var missing []string
	for _, required := range []struct{ key, val string }{
		{"DB_URL", env.DBURL},
		{"ACCESS_SECRET", env.AccessSecret},
		{"REFRESH_SECRET", env.RefreshSecret},
	} {
		if required.val == "" {
			missing = append(missing, required.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	var err error
	if env.RedisDB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if env.AccessTTL, err = getEnvAsDuration("ACCESS_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if env.RefreshTTL, err = getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if env.SessionReapInterval, err = getEnvAsDuration("SESSION_REAP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	return env, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return val, nil
}

func getEnvAsDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal, nil
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid value for %s: must be positive", key)
	}
	return val, nil
}
