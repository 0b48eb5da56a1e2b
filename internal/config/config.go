package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the dispatch
// server. Values are primarily loaded from environment variables with
// sane defaults so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisPoolKey  string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	OSRMEndpoint     string
	GeocoderEndpoint string
	RouteTimeout     time.Duration
	RouteCacheTTL    time.Duration

	DecisionWindow time.Duration
	OfferInterval  time.Duration

	SuggestMinChars int
	SuggestDebounce time.Duration

	ShiftStartHour int
	ShiftEndHour   int

	StripeAPIKey string

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:         ":8080",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      120 * time.Second,
		ShutdownTimeout:  15 * time.Second,
		RedisPoolKey:     "request_templates",
		KafkaTopic:       "request-templates",
		OSRMEndpoint:     "http://localhost:5000",
		GeocoderEndpoint: "https://nominatim.openstreetmap.org",
		RouteTimeout:     10 * time.Second,
		RouteCacheTTL:    5 * time.Minute,
		DecisionWindow:   30 * time.Second,
		OfferInterval:    15 * time.Second,
		SuggestMinChars:  3,
		SuggestDebounce:  300 * time.Millisecond,
		ShiftStartHour:   8,
		ShiftEndHour:     20,
		LogLevel:         "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisPoolKey, "REDIS_POOL_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")
	setStringFromEnv(&cfg.GeocoderEndpoint, "GEOCODER_ENDPOINT")
	setDurationFromEnv(&cfg.RouteTimeout, "ROUTE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.RouteCacheTTL, "ROUTE_CACHE_TTL", &errs)

	setDurationFromEnv(&cfg.DecisionWindow, "DECISION_WINDOW", &errs)
	setDurationFromEnv(&cfg.OfferInterval, "OFFER_INTERVAL", &errs)

	setIntFromEnv(&cfg.SuggestMinChars, "SUGGEST_MIN_CHARS", &errs)
	setDurationFromEnv(&cfg.SuggestDebounce, "SUGGEST_DEBOUNCE", &errs)

	setIntFromEnv(&cfg.ShiftStartHour, "SHIFT_START_HOUR", &errs)
	setIntFromEnv(&cfg.ShiftEndHour, "SHIFT_END_HOUR", &errs)

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.DecisionWindow <= 0 {
		errs = append(errs, fmt.Errorf("DECISION_WINDOW must be > 0"))
	}
	if cfg.OfferInterval <= 0 {
		errs = append(errs, fmt.Errorf("OFFER_INTERVAL must be > 0"))
	}
	if cfg.SuggestMinChars <= 0 {
		errs = append(errs, fmt.Errorf("SUGGEST_MIN_CHARS must be > 0"))
	}
	if cfg.ShiftEndHour <= cfg.ShiftStartHour {
		errs = append(errs, fmt.Errorf("SHIFT_END_HOUR must be after SHIFT_START_HOUR"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
