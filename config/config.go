package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	HoldTTLSeconds     int `yaml:"hold_ttl_seconds"`
	ConfirmationTTL    int `yaml:"confirmation_ttl_minutes"`
	PolicyCacheTTL     int `yaml:"policy_cache_ttl_seconds"`
	TxRetryAttempts    int `yaml:"tx_retry_attempts"`
	DefaultMaxAdvance  int `yaml:"default_max_advance_days"`
	DefaultNoticeHours int `yaml:"default_min_notice_hours"`
}

type WorkerConfig struct {
	OutboxPollSeconds   int `yaml:"outbox_poll_seconds"`
	OutboxBatchSize     int `yaml:"outbox_batch_size"`
	SweepMinutes        int `yaml:"sweep_minutes"`
	MaxDeliveryAttempts int `yaml:"max_delivery_attempts"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Booking.HoldTTLSeconds == 0 {
		c.Booking.HoldTTLSeconds = 300
	}
	if c.Booking.ConfirmationTTL == 0 {
		c.Booking.ConfirmationTTL = 60
	}
	if c.Booking.TxRetryAttempts == 0 {
		c.Booking.TxRetryAttempts = 3
	}
	if c.Booking.DefaultMaxAdvance == 0 {
		c.Booking.DefaultMaxAdvance = 60
	}
	if c.Worker.OutboxPollSeconds == 0 {
		c.Worker.OutboxPollSeconds = 5
	}
	if c.Worker.OutboxBatchSize == 0 {
		c.Worker.OutboxBatchSize = 50
	}
	if c.Worker.SweepMinutes == 0 {
		c.Worker.SweepMinutes = 1
	}
	if c.Worker.MaxDeliveryAttempts == 0 {
		c.Worker.MaxDeliveryAttempts = 4
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}
