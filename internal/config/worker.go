package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WorkerConfig configures the background worker process. The worker runs in
// containers without a config file mount, so it is configured from the
// environment only.
type WorkerConfig struct {
	DatabaseHost     string        `envconfig:"DB_HOST" default:"localhost"`
	DatabasePort     int           `envconfig:"DB_PORT" default:"5432"`
	DatabaseUser     string        `envconfig:"DB_USER" required:"true"`
	DatabasePassword string        `envconfig:"DB_PASSWORD" required:"true"`
	DatabaseName     string        `envconfig:"DB_NAME" required:"true"`
	DatabaseSSLMode  string        `envconfig:"DB_SSLMODE" default:"disable"`
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	MetricsPort      int           `envconfig:"METRICS_PORT" default:"9090"`
	OutboxBatchSize  int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxInterval   time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetries    int           `envconfig:"OUTBOX_MAX_RETRIES" default:"3"`
	OutboxRetryDelay time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`
	ReminderEnabled  bool          `envconfig:"REMINDER_ENABLED" default:"true"`
	ReminderInterval time.Duration `envconfig:"REMINDER_SWEEP_INTERVAL" default:"1h"`
	SMTPHost         string        `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort         int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername     string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword     string        `envconfig:"SMTP_PASSWORD"`
	SMTPFrom         string        `envconfig:"SMTP_FROM" default:"no-reply@qline.example"`
}

func LoadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}
	return &cfg, nil
}

// Database maps the worker's flat env settings onto the shared database
// config consumed by the connection helper.
func (c *WorkerConfig) Database() DatabaseConfig {
	return DatabaseConfig{
		Host:     c.DatabaseHost,
		Port:     c.DatabasePort,
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		Name:     c.DatabaseName,
		SSLMode:  c.DatabaseSSLMode,
	}
}
