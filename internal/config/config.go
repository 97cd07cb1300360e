package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the live session API.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	JudgeURL          string
	JudgeAPIKey       string
	JudgePollInterval time.Duration
	JudgeMaxAttempts  int
	TestCaseCacheTTL  time.Duration
	ActiveWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LIVE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Live API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("judge.poll_interval", "1s")
	v.SetDefault("judge.max_attempts", 30)
	v.SetDefault("testcase.cache_ttl", "30m")
	v.SetDefault("stats.active_window", "30m")

	pollInterval, err := parseDuration(v.GetString("judge.poll_interval"), "judge poll interval")
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v.GetString("testcase.cache_ttl"), "test case cache ttl")
	if err != nil {
		return Config{}, err
	}

	activeWindow, err := parseDuration(v.GetString("stats.active_window"), "active window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		JudgeURL:          strings.TrimRight(v.GetString("judge.url"), "/"),
		JudgeAPIKey:       v.GetString("judge.api_key"),
		JudgePollInterval: pollInterval,
		JudgeMaxAttempts:  v.GetInt("judge.max_attempts"),
		TestCaseCacheTTL:  cacheTTL,
		ActiveWindow:      activeWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.JudgeURL == "" {
		return Config{}, fmt.Errorf("judge url must be provided")
	}

	if cfg.JudgeMaxAttempts <= 0 {
		cfg.JudgeMaxAttempts = 30
	}

	return cfg, nil
}

func parseDuration(raw, what string) (time.Duration, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s must not be empty", what)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", what, err)
	}

	return parsed, nil
}
