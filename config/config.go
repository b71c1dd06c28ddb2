package config

import (
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var AppCfg AppConfig

type AppConfig struct {
	Port      string `envconfig:"PORT" default:"8080"`
	JWTSecret string `envconfig:"JWT_SECRET" default:""`

	DB_HOST     string `envconfig:"DB_HOST" default:"localhost"`
	DB_PORT     string `envconfig:"DB_PORT" default:"3306"`
	DB_USER     string `envconfig:"DB_USER" default:"root"`
	DB_PASSWORD string `envconfig:"DB_PASSWORD" default:""`
	DB_NAME     string `envconfig:"DB_NAME" default:"tinyfeedback"`

	// Optional shared rate-limit store. Empty means the in-memory store.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	// Outbound notification email. Empty key disables sending.
	ResendAPIKey string `envconfig:"RESEND_API_KEY" default:""`
	NotifyFrom   string `envconfig:"NOTIFY_FROM" default:"TinyFeedback <notify@tinyfeedback.app>"`

	// Free plan quota: hard monthly cap and the soft warning threshold.
	FreeMonthlyLimit     int    `envconfig:"FREE_MONTHLY_LIMIT" default:"100"`
	FreeWarningThreshold int    `envconfig:"FREE_WARNING_THRESHOLD" default:"80"`
	UpgradeURL           string `envconfig:"UPGRADE_URL" default:"https://tinyfeedback.app/upgrade"`

	// Widget submissions are keyed by client IP, API traffic by key.
	WidgetRateLimit    int `envconfig:"WIDGET_RATE_LIMIT" default:"5"`
	WidgetRateWindowMs int `envconfig:"WIDGET_RATE_WINDOW_MS" default:"60000"`
	APIRateLimit       int `envconfig:"API_RATE_LIMIT" default:"100"`
	APIRateWindowMs    int `envconfig:"API_RATE_WINDOW_MS" default:"60000"`
}

func (cfg *AppConfig) LoadConfig() {
	err := envconfig.Process("", cfg)
	if err != nil {
		log.WithError(err).Error("load env err")
	}
}
