package config

import "time"

type AppConfig struct {
	APIPort            string `env:"PORT" envDefault:"8080"`
	APIKey             string `env:"API_KEY"`
	RabbitMQURL        string `env:"RABBITMQ_URL"`
	LemonWebhookSecret string `env:"LEMON_WEBHOOK_SECRET"`
	LemonPaymentURL    string `env:"LEMON_PAYMENT_URL" envDefault:"https://pay.lemon.com/driver-sheet"`
}

type MailConfig struct {
	Domain          string        `env:"MAIL_DOMAIN" envDefault:"driversheet.com"`
	BindAddr        string        `env:"MAIL_BIND_ADDR" envDefault:":25"`
	MaxMessageBytes int64         `env:"MAIL_MAX_MESSAGE_BYTES" envDefault:"26214400"`
	MaxRecipients   int           `env:"MAIL_MAX_RECIPIENTS" envDefault:"50"`
	ReadTimeout     time.Duration `env:"MAIL_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout    time.Duration `env:"MAIL_WRITE_TIMEOUT" envDefault:"60s"`
}

type FanoutConfig struct {
	SheetsTimeout  time.Duration `env:"FANOUT_SHEETS_TIMEOUT" envDefault:"15s"`
	PersistTimeout time.Duration `env:"FANOUT_PERSIST_TIMEOUT" envDefault:"10s"`
	ArchiveTimeout time.Duration `env:"FANOUT_ARCHIVE_TIMEOUT" envDefault:"10s"`
	EventsTimeout  time.Duration `env:"FANOUT_EVENTS_TIMEOUT" envDefault:"5s"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required"`
	Port            string `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"POSTGRES_USER,required"`
	DBName          string `env:"POSTGRES_DB_NAME,required"`
	Password        string `env:"POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"require"`
}

type SheetsConfig struct {
	// Service account key JSON, inline.
	ServiceAccountKey string `env:"GOOGLE_SA_KEY"`
	AppendRange       string `env:"SHEETS_APPEND_RANGE" envDefault:"Sheet1!A:D"`
}

type CronConfig struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Trial expiry monitor, hourly
	CronScheduleTrialMonitor string `env:"CRON_SCHEDULE_TRIAL_MONITOR" envDefault:"0 0 * * * *"`
}

// R2StorageConfig enables archiving of received report documents. Archiving is off unless
// the account and credentials are all set.
type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	BucketName      string `env:"CLOUDFLARE_R2_REPORTS_BUCKET" envDefault:"driversheet-reports"`
}

func (c *R2StorageConfig) Enabled() bool {
	return c != nil && c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != ""
}
