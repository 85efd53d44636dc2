package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string
	Timezone string

	BookingAPIURL      string
	BookingAPITimeout  time.Duration
	RetryBackoff       []time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
	WindowCacheTTL     time.Duration

	MongoURI string
	MongoDB  string

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	InstanceID         string
	ReservationTopic   string
	ReservationFeed    bool
	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int
	InboxTTL           time.Duration

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisPreferenceTTL time.Duration

	IdempotencyTTL time.Duration

	MaxNights        int
	SeniorPWDPercent int
	Currency         string
	VenueOpen        time.Duration
	VenueClose       time.Duration
	VenueSlotStep    time.Duration
}

// Load parses configuration from the current environment.
// Mongo, Kafka and Redis are optional.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		Timezone:         getEnv("TIMEZONE", "Asia/Manila"),
		BookingAPIURL:    strings.TrimRight(getEnv("BOOKING_API_URL", "http://localhost:8000/api"), "/"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "innkeep"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "innkeep"),
		ReservationTopic: getEnv("KAFKA_RESERVATION_TOPIC", "reservation.events.v1"),
		InstanceID:       getEnv("INSTANCE_ID", hostname()),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "PHP")),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"BOOKING_API_TIMEOUT", 5 * time.Second, &cfg.BookingAPITimeout},
		{"BREAKER_OPEN_TIMEOUT", 30 * time.Second, &cfg.BreakerOpenTimeout},
		{"WINDOW_CACHE_TTL", 2 * time.Minute, &cfg.WindowCacheTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"INBOX_TTL", 72 * time.Hour, &cfg.InboxTTL},
		{"REDIS_PREFERENCE_TTL", 30 * 24 * time.Hour, &cfg.RedisPreferenceTTL},
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"VENUE_OPEN", 7 * time.Hour, &cfg.VenueOpen},
		{"VENUE_CLOSE", 22 * time.Hour, &cfg.VenueClose},
		{"VENUE_SLOT_STEP", 30 * time.Minute, &cfg.VenueSlotStep},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"BREAKER_MAX_FAILURES", 5, &cfg.BreakerMaxFailures},
		{"OUTBOX_MAX_ATTEMPTS", 20, &cfg.OutboxMaxAttempts},
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"MAX_NIGHTS", 30, &cfg.MaxNights},
		{"SENIOR_PWD_PERCENT", 20, &cfg.SeniorPWDPercent},
	}
	for _, i := range ints {
		v, err := parseIntEnv(i.key, i.def)
		if err != nil {
			return Config{}, err
		}
		*i.dst = v
	}

	feed, err := parseBoolEnv("RESERVATION_FEED_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	cfg.ReservationFeed = feed

	retryStr := getEnv("RETRY_BACKOFF", "200ms,1s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.BookingAPIURL == "" {
		return Config{}, fmt.Errorf("BOOKING_API_URL is required")
	}
	if cfg.SeniorPWDPercent < 0 || cfg.SeniorPWDPercent > 100 {
		return Config{}, fmt.Errorf("SENIOR_PWD_PERCENT must be within 0..100, got %d", cfg.SeniorPWDPercent)
	}
	if cfg.MaxNights <= 0 {
		return Config{}, fmt.Errorf("MAX_NIGHTS must be positive, got %d", cfg.MaxNights)
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone; "today" and day boundaries are computed in it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ConsumerGroup is the change-feed group of this process. Window caches live
// in process memory, so every replica consumes the whole feed.
func (c Config) ConsumerGroup() string {
	return c.KafkaGroupID + "-" + c.InstanceID
}

func (c Config) MongoEnabled() bool { return c.MongoURI != "" }
func (c Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }
func (c Config) RedisEnabled() bool { return c.RedisAddr != "" }

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "local"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
