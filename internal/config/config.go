// Package config centralises configuration parsing for the fitness tracker services.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values shared by the binaries.
type Config struct {
	HTTPAddress        string
	MetricsAddress     string
	PostgresURL        string // Empty selects the in-memory stores.
	KafkaBrokers       []string
	SchemaRegistryURL  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	JWTSecret          string
	JWTIssuer          string
	DLQPollInterval    time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries      int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration // Base delay used for exponential backoff.
	ConsumerGroupID    string
	ConsumerTopics     []string

	MonthlySchedule  string
	ScheduleTimezone string
	RunConcurrency   int

	SMTPHost      string // Empty logs reports instead of sending them.
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFrom      string
	ReportSubject string
}

// Defaults returns the configuration used for local development.
func Defaults() Config {
	return Config{
		HTTPAddress:        ":8080",
		MetricsAddress:     ":9090",
		KafkaBrokers:       []string{"kafka:9092"},
		SchemaRegistryURL:  "http://schema-registry:8081",
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    25,
		JWTSecret:          "dev-secret-change-me",
		JWTIssuer:          "fitness-tracker.identity",
		DLQPollInterval:    30 * time.Second,
		DLQMaxRetries:      5,
		DLQBaseDelay:       time.Minute,
		ConsumerGroupID:    "fitness-tracker-audit",
		ConsumerTopics:     []string{"training_events", "statistics_events"},
		MonthlySchedule:    "0 0 1 * *",
		RunConcurrency:     4,
		SMTPPort:           587,
		MailFrom:           "reports@fitness-tracker.local",
		ReportSubject:      "Monthly Training Report",
	}
}

// Load builds the configuration from defaults, the optional TOML file named by CONFIG_FILE and
// finally environment variables, each layer overriding the previous one.
func Load() (Config, error) {
	cfg := Defaults()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := file.apply(&cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.HTTPAddress = getEnv("HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.MetricsAddress = getEnv("METRICS_ADDRESS", cfg.MetricsAddress)
	cfg.PostgresURL = getEnv("POSTGRES_URL", cfg.PostgresURL)
	cfg.SchemaRegistryURL = getEnv("SCHEMA_REGISTRY_URL", cfg.SchemaRegistryURL)
	cfg.OutboxPollInterval = getDurationEnv("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = getIntEnv("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.DLQPollInterval = getDurationEnv("DLQ_POLL_INTERVAL", cfg.DLQPollInterval)
	cfg.DLQMaxRetries = getIntEnv("DLQ_MAX_RETRIES", cfg.DLQMaxRetries)
	cfg.DLQBaseDelay = getDurationEnv("DLQ_BASE_DELAY", cfg.DLQBaseDelay)
	cfg.ConsumerGroupID = getEnv("CONSUMER_GROUP_ID", cfg.ConsumerGroupID)
	cfg.MonthlySchedule = getEnv("MONTHLY_SCHEDULE", cfg.MonthlySchedule)
	cfg.ScheduleTimezone = getEnv("SCHEDULE_TIMEZONE", cfg.ScheduleTimezone)
	cfg.RunConcurrency = getIntEnv("RUN_CONCURRENCY", cfg.RunConcurrency)
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getIntEnv("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.MailFrom = getEnv("MAIL_FROM", cfg.MailFrom)
	cfg.ReportSubject = getEnv("REPORT_SUBJECT", cfg.ReportSubject)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	if topics := getEnv("CONSUMER_TOPICS", ""); topics != "" {
		cfg.ConsumerTopics = splitAndTrim(topics)
	}

	if cfg.RunConcurrency <= 0 {
		return Config{}, fmt.Errorf("RUN_CONCURRENCY must be positive, got %d", cfg.RunConcurrency)
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves ScheduleTimezone; empty or "Local" means the system zone.
func (c Config) Location() (*time.Location, error) {
	switch c.ScheduleTimezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone %q: %w", c.ScheduleTimezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
