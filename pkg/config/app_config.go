package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

func LoadFromENV[Type any]() (Type, error) {
	var config Type
	err := envconfig.Process("", &config)
	return config, err
}

type BaseConfig struct {
	Version     string `envconfig:"VERSION" default:"dev"`
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	ServiceID   string `envconfig:"SERVICE_ID" default:"straddle-bot"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
}

func (c *BaseConfig) IsLocal() bool {
	return strings.ToLower(c.Environment) == "local"
}

func (c *BaseConfig) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

type ServerConfig struct {
	Port         string `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  int    `envconfig:"SERVER_READ_TIMEOUT" default:"30"`
	WriteTimeout int    `envconfig:"SERVER_WRITE_TIMEOUT" default:"30"`
	IdleTimeout  int    `envconfig:"SERVER_IDLE_TIMEOUT" default:"60"`
}

type BybitConfig struct {
	APIKey    string `envconfig:"BYBIT_API_KEY" required:"true"`
	SecretKey string `envconfig:"BYBIT_API_SECRET" required:"true"`
	Testnet   bool   `envconfig:"BYBIT_TESTNET" default:"false"`
}

type TelegramConfig struct {
	Token  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// StrategyConfig carries the straddle parameters. Percent fields are whole
// percents (1 means 1%), converted to fractions where they are applied.
type StrategyConfig struct {
	Symbols               []string        `envconfig:"SYMBOLS" default:"LINKUSDT"`
	AmountUSDT            decimal.Decimal `envconfig:"AMOUNT_USDT" default:"20"`
	DistanceNarrowPercent decimal.Decimal `envconfig:"DISTANCE_NARROW_PERCENT" default:"1"`
	DistanceWidePercent   decimal.Decimal `envconfig:"DISTANCE_WIDE_PERCENT" default:"2.5"`
	StopLossPercent       decimal.Decimal `envconfig:"STOP_LOSS_PERCENT" default:"1"`
	TakeProfitPercent     decimal.Decimal `envconfig:"TAKE_PROFIT_PERCENT" default:"2"`
	OpenPollInterval      time.Duration   `envconfig:"OPEN_POLL_INTERVAL" default:"3s"`
	ClosePollInterval     time.Duration   `envconfig:"CLOSE_POLL_INTERVAL" default:"5s"`
}

type Config struct {
	Base     BaseConfig     `envconfig:""`
	Server   ServerConfig   `envconfig:""`
	Bybit    BybitConfig    `envconfig:""`
	Telegram TelegramConfig `envconfig:""`
	Strategy StrategyConfig `envconfig:""`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := LoadFromENV[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
