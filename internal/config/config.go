package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

type Config struct {
	// Projection
	DefaultROI float64
	Currency   string

	// Autosave
	AutosaveCooldown time.Duration
	Codec            string

	// Share links
	TokenParam string
	PageURL    string

	// Database
	HistoryDBPath string

	// Projection cache
	CacheSize int
	CacheTTL  time.Duration

	// AMQP (optional, empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DefaultROI: getEnvFloat("FIRE_DEFAULT_ROI", 0.07),
		Currency:   strings.ToUpper(getEnv("FIRE_CURRENCY", money.USD)),

		AutosaveCooldown: getEnvDuration("FIRE_AUTOSAVE_COOLDOWN", time.Second),
		Codec:            getEnv("FIRE_CODEC", "deflate"),

		TokenParam: getEnv("FIRE_TOKEN_PARAM", "state"),
		PageURL:    getEnv("FIRE_PAGE_URL", "https://fire.local/"),

		HistoryDBPath: getEnv("FIRE_HISTORY_DB_PATH", "./data/fire.db"),

		CacheSize: getEnvInt("FIRE_CACHE_SIZE", 64),
		CacheTTL:  getEnvDuration("FIRE_CACHE_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fire"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "fire_shares"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if math.IsNaN(c.DefaultROI) || math.IsInf(c.DefaultROI, 0) {
		errors = append(errors, fmt.Sprintf("invalid default roi %v: must be a finite number", c.DefaultROI))
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be an ISO 4217 code", c.Currency))
	}

	if c.AutosaveCooldown < 0 {
		errors = append(errors, fmt.Sprintf("invalid autosave cooldown %v: must not be negative", c.AutosaveCooldown))
	}

	validCodecs := []string{"json", "deflate", "sealed"}
	isValidCodec := false
	for _, codec := range validCodecs {
		if c.Codec == codec {
			isValidCodec = true
			break
		}
	}
	if !isValidCodec {
		errors = append(errors, fmt.Sprintf("invalid codec '%s': must be one of %v", c.Codec, validCodecs))
	}

	if c.TokenParam == "" {
		errors = append(errors, "token parameter name cannot be empty")
	}

	if parsedURL, err := url.Parse(c.PageURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid page URL '%s': %v", c.PageURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid page URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.HistoryDBPath == "" {
		errors = append(errors, "history database path cannot be empty")
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	} else if c.CacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 10000", c.CacheSize))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
