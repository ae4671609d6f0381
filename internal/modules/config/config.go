package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	storePathENV      = "ALERT_STORE_PATH"
)

// Config ...
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		BaseURL   string `yaml:"base_url"`
		WSURL     string `yaml:"ws_url"`
	} `yaml:"binance"`

	// Алерты. Интервалы задаются env-переменными (CHECK_INTERVAL и т.п.,
	// формат как у time.ParseDuration), yaml.v2 duration не умеет.
	AlertStorePath string        `yaml:"alert_store_path"`
	CheckInterval  time.Duration `yaml:"-"` // период опроса цен

	// Трекер цен в чате
	TrackInterval time.Duration `yaml:"-"`

	// Торговля: дефолтный символ и параметры формулы TP/SL.
	// risk — доля от цены входа, f0/ft — комиссии входа/выхода.
	TradeSymbol    string  `yaml:"trade_symbol"`
	Risk           float64 `yaml:"risk"`
	EntryFee       float64 `yaml:"entry_fee"`
	ExitFee        float64 `yaml:"exit_fee"`
	PricePrecision int     `yaml:"price_precision"`
	DefaultRR      float64 `yaml:"default_rr"`

	ConfirmTimeout time.Duration `yaml:"-"`

	HealthAddr string `yaml:"health_addr"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("check_interval", "180s")
	v.SetDefault("track_interval", "60s")
	v.SetDefault("confirm_timeout", "30s")
	v.SetDefault("trade_symbol", "BTCUSDC")
	v.SetDefault("alert_store_path", "data/stock_alerts.json")

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		AlertStorePath: v.GetString("alert_store_path"),
		CheckInterval:  v.GetDuration("check_interval"),
		TrackInterval:  v.GetDuration("track_interval"),
		ConfirmTimeout: v.GetDuration("confirm_timeout"),

		TradeSymbol:    v.GetString("trade_symbol"),
		Risk:           0.01,
		EntryFee:       0.001,
		ExitFee:        0.001,
		PricePrecision: 2,
		DefaultRR:      1.5,
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	// env поверх файла
	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if path := os.Getenv(storePathENV); path != "" {
		config.AlertStorePath = path
	}

	if config.Binance.BaseURL == "" {
		config.Binance.BaseURL = "https://api.binance.com"
	}
	if config.Binance.WSURL == "" {
		config.Binance.WSURL = "wss://stream.binance.com:9443/ws"
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 180 * time.Second
	}
	if config.HealthAddr == "" {
		config.HealthAddr = ":8080"
	}
	if config.Jaeger.Host == "" {
		config.Jaeger.Host = "localhost"
	}
	if config.Jaeger.Port == 0 {
		config.Jaeger.Port = 6831
	}

	return &config, nil
}
