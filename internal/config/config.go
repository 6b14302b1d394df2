package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                       string `yaml:"port"`
	LogLevel                   string `yaml:"logLevel"`
	DatabaseURL                string `yaml:"databaseURL"`
	RedisAddr                  string `yaml:"redisAddr"`
	RedisPassword              string `yaml:"redisPassword"`
	SessionBackend             string `yaml:"sessionBackend"`
	SessionTTL                 string `yaml:"sessionTTL"`
	JWTSecret                  string `yaml:"jwtSecret"`
	JWTIssuer                  string `yaml:"jwtIssuer"`
	JWTAudience                string `yaml:"jwtAudience"`
	JWTLeeway                  string `yaml:"jwtLeeway"`
	SignupRateLimitPerMinute   int    `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute    int    `yaml:"loginRateLimitPerMinute"`
	FeedbackRateLimitPerMinute int    `yaml:"feedbackRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("READNEST_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("READNEST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("READNEST_SESSION_BACKEND"); v != "" {
		cfg.SessionBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("READNEST_SESSION_TTL"); v != "" {
		cfg.SessionTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("READNEST_SIGNUP_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SignupRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("READNEST_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("READNEST_FEEDBACK_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FeedbackRateLimitPerMinute = n
		}
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = "redis"
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	switch cfg.SessionBackend {
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for redis sessions")
		}
	case "jwt":
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			return errors.New("config: jwtSecret is required for jwt sessions (set in config.yaml or JWT_SECRET)")
		}
	default:
		return fmt.Errorf("config: unknown sessionBackend %q (want redis or jwt)", cfg.SessionBackend)
	}
	hasLimits := cfg.SignupRateLimitPerMinute > 0 || cfg.LoginRateLimitPerMinute > 0 || cfg.FeedbackRateLimitPerMinute > 0
	if hasLimits && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.SignupRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 || cfg.FeedbackRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if _, err := ParseJWTLeeway(cfg.JWTLeeway); err != nil {
		return err
	}
	return nil
}

// ParseSessionTTL parses the session lifetime, defaulting to 30 days.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 30 * 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: sessionTTL must be positive")
	}
	return dur, nil
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}
