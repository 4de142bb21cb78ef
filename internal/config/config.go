package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`

	StoreDriver  string        `env:"STORE_DRIVER"  envDefault:"memory" validate:"oneof=memory postgres"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"     validate:"gt=0"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"motortrade"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"motortrade"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"motortrade"`
	PostgresMigrate  bool   `env:"POSTGRES_MIGRATE"  envDefault:"true"`

	RedisEnabled      bool   `env:"REDIS_ENABLED"       envDefault:"false"`
	RedisAuctionsHost string `env:"REDIS_AUCTIONS_HOST" envDefault:"localhost"`
	RedisAuctionsPort uint16 `env:"REDIS_AUCTIONS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	// Whole currency units; 0 means any bid above zero is accepted.
	BidMinIncrement         int64 `env:"BID_MIN_INCREMENT"         envDefault:"0" validate:"min=0"`
	RequireDealConfirmation bool  `env:"REQUIRE_DEAL_CONFIRMATION" envDefault:"false"`
	AllowAuctionReset       bool  `env:"ALLOW_AUCTION_RESET"       envDefault:"false"`

	JwtSecret string `env:"JWT_SECRET" validate:"required,min=16"`

	WsPingPeriod time.Duration `env:"WS_PING_PERIOD" envDefault:"25s" validate:"gt=0,ltfield=WsPongWait"`
	WsPongWait   time.Duration `env:"WS_PONG_WAIT"   envDefault:"30s" validate:"gt=0"`
	WsSendBuffer int           `env:"WS_SEND_BUFFER" envDefault:"64"  validate:"min=1,max=4096"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10s" validate:"gt=0"`

	BidRatePerSecond float64 `env:"BID_RATE_PER_SECOND" envDefault:"5"  validate:"gt=0"`
	BidRateBurst     int     `env:"BID_RATE_BURST"      envDefault:"10" validate:"min=1"`

	CorsAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	SmtpHost     string `env:"SMTP_HOST"`
	SmtpPort     int    `env:"SMTP_PORT"     envDefault:"587" validate:"min=1,max=65535"`
	SmtpUsername string `env:"SMTP_USERNAME"`
	SmtpPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"     validate:"omitempty,email"`
}

// MailEnabled is true once an SMTP host is configured.
func (c *Config) MailEnabled() bool { return strings.TrimSpace(c.SmtpHost) != "" }

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	if cfg.MailEnabled() && cfg.MailFrom == "" {
		err := errors.New("MAIL_FROM is required when SMTP_HOST is set")
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
