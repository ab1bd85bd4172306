package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the optional TOML configuration file. Unset keys keep their previous value.
type FileConfig struct {
	HTTP     HTTPSection     `toml:"http"`
	Postgres PostgresSection `toml:"postgres"`
	Kafka    KafkaSection    `toml:"kafka"`
	Outbox   OutboxSection   `toml:"outbox"`
	DLQ      DLQSection      `toml:"dlq"`
	Auth     AuthSection     `toml:"auth"`
	Schedule ScheduleSection `toml:"schedule"`
	SMTP     SMTPSection     `toml:"smtp"`
	Report   ReportSection   `toml:"report"`
}

type HTTPSection struct {
	Address        *string `toml:"address"`
	MetricsAddress *string `toml:"metrics_address"`
}

type PostgresSection struct {
	URL *string `toml:"url"`
}

type KafkaSection struct {
	Brokers           []string `toml:"brokers"`
	SchemaRegistryURL *string  `toml:"schema_registry_url"`
	ConsumerGroupID   *string  `toml:"consumer_group_id"`
	ConsumerTopics    []string `toml:"consumer_topics"`
}

type OutboxSection struct {
	PollInterval *string `toml:"poll_interval"`
	BatchSize    *int    `toml:"batch_size"`
}

type DLQSection struct {
	PollInterval *string `toml:"poll_interval"`
	MaxRetries   *int    `toml:"max_retries"`
	BaseDelay    *string `toml:"base_delay"`
}

type AuthSection struct {
	JWTSecret *string `toml:"jwt_secret"`
	JWTIssuer *string `toml:"jwt_issuer"`
}

type ScheduleSection struct {
	Monthly     *string `toml:"monthly"`
	Timezone    *string `toml:"timezone"`
	Concurrency *int    `toml:"concurrency"`
}

type SMTPSection struct {
	Host     *string `toml:"host"`
	Port     *int    `toml:"port"`
	Username *string `toml:"username"`
	Password *string `toml:"password"`
	From     *string `toml:"from"`
}

type ReportSection struct {
	Subject *string `toml:"subject"`
}

// LoadFile reads a TOML config from the given path. Missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func (f FileConfig) apply(cfg *Config) error {
	setString(&cfg.HTTPAddress, f.HTTP.Address)
	setString(&cfg.MetricsAddress, f.HTTP.MetricsAddress)
	setString(&cfg.PostgresURL, f.Postgres.URL)
	setString(&cfg.SchemaRegistryURL, f.Kafka.SchemaRegistryURL)
	setString(&cfg.ConsumerGroupID, f.Kafka.ConsumerGroupID)
	setInt(&cfg.OutboxBatchSize, f.Outbox.BatchSize)
	setInt(&cfg.DLQMaxRetries, f.DLQ.MaxRetries)
	setString(&cfg.JWTSecret, f.Auth.JWTSecret)
	setString(&cfg.JWTIssuer, f.Auth.JWTIssuer)
	setString(&cfg.MonthlySchedule, f.Schedule.Monthly)
	setString(&cfg.ScheduleTimezone, f.Schedule.Timezone)
	setInt(&cfg.RunConcurrency, f.Schedule.Concurrency)
	setString(&cfg.SMTPHost, f.SMTP.Host)
	setInt(&cfg.SMTPPort, f.SMTP.Port)
	setString(&cfg.SMTPUsername, f.SMTP.Username)
	setString(&cfg.SMTPPassword, f.SMTP.Password)
	setString(&cfg.MailFrom, f.SMTP.From)
	setString(&cfg.ReportSubject, f.Report.Subject)

	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	if len(f.Kafka.ConsumerTopics) > 0 {
		cfg.ConsumerTopics = f.Kafka.ConsumerTopics
	}

	if err := setDuration(&cfg.OutboxPollInterval, f.Outbox.PollInterval, "outbox.poll_interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.DLQPollInterval, f.DLQ.PollInterval, "dlq.poll_interval"); err != nil {
		return err
	}
	return setDuration(&cfg.DLQBaseDelay, f.DLQ.BaseDelay, "dlq.base_delay")
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	parsed, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}
