package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use forms like "30m".
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`

	// Product is the underlying currency pair, e.g. BTC_JPY. The engine
	// trades the leveraged FX_<pair> product against it.
	Product string `yaml:"product"`

	TradingMode string `yaml:"trading_mode"`
	DryRun      bool   `yaml:"dry_run"`

	Trade    TradeConfig    `yaml:"trade"`
	Risk     RiskConfig     `yaml:"risk"`
	Order    OrderConfig    `yaml:"order"`
	Feed     FeedConfig     `yaml:"feed"`
	Paper    PaperConfig    `yaml:"paper"`
	Recorder RecorderConfig `yaml:"recorder"`
	Logging  LoggingConfig  `yaml:"logging"`
	Telegram TelegramConfig `yaml:"telegram"`
	API      APIConfig      `yaml:"api"`
}

type TradeConfig struct {
	EwmAlpha     float64       `yaml:"ewm_alpha"`
	SigmaTrigger float64       `yaml:"sigma_trigger"`
	Bet          string        `yaml:"bet"`
	Size         SizeConfig    `yaml:"size"`
	WarmupCount  int           `yaml:"warmup_count"`
	Timeout      Duration      `yaml:"pending_timeout"`
	Pivot        bool          `yaml:"pivot"`
	Contrarian   bool          `yaml:"contrarian"`
}

type SizeConfig struct {
	Unit float64 `yaml:"unit"`
	Max  float64 `yaml:"max"`
}

type RiskConfig struct {
	SFDPins     []float64 `yaml:"sfd_pins"`
	SkipSFDDist float64   `yaml:"skip_sfd_dist"`
	MinKeepRate float64   `yaml:"min_keep_rate"`
	MaxSize     float64   `yaml:"max_size"`
}

type OrderConfig struct {
	IFDOCO        bool    `yaml:"ifdoco"`
	TimeInForce   string  `yaml:"time_in_force"`
	TakeProfitBps float64 `yaml:"take_profit_bps"`
	StopLossBps   float64 `yaml:"stop_loss_bps"`
	ExpireMinutes int     `yaml:"expire_minutes"`
}

type FeedConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	ReconnectWait Duration `yaml:"reconnect_wait"`
}

type PaperConfig struct {
	InitialCollateral float64 `yaml:"initial_collateral"`
	KeepRate          float64 `yaml:"keep_rate"`
	SlippageBps       float64 `yaml:"slippage_bps"`
	MaxOrderSize      float64 `yaml:"max_order_size"`
}

type RecorderConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func Default() Config {
	return Config{
		Product:     "BTC_JPY",
		TradingMode: "paper",
		Trade: TradeConfig{
			EwmAlpha:     0.01,
			SigmaTrigger: 2,
			Bet:          "Oscar's grind",
			Size:         SizeConfig{Unit: 0.01, Max: 0.1},
			WarmupCount:  100,
			Timeout:      Duration(time.Hour),
			Pivot:        true,
		},
		Risk: RiskConfig{
			SFDPins:     []float64{0.05, 0.1, 0.15, 0.2},
			SkipSFDDist: 0.0002,
			MinKeepRate: 0.8,
			MaxSize:     1,
		},
		Order: OrderConfig{
			TimeInForce:   "GTC",
			TakeProfitBps: 20,
			StopLossBps:   40,
			ExpireMinutes: 1440,
		},
		Feed: FeedConfig{
			Endpoint:      "wss://ws.lightstream.bitflyer.com/json-rpc",
			ReconnectWait: Duration(2 * time.Second),
		},
		Paper: PaperConfig{
			InitialCollateral: 100000,
			KeepRate:          1.2,
			SlippageBps:       5,
			MaxOrderSize:      1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		API: APIConfig{
			Addr: ":8080",
		},
	}
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	if v := os.Getenv("BITFLYER_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("BITFLYER_API_SECRET"); v != "" {
		c.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADER_PRODUCT")); v != "" {
		c.Product = strings.ToUpper(v)
	}
	if v := os.Getenv("TRADER_DRY_RUN"); v != "" {
		c.DryRun = strings.EqualFold(v, "true") || v == "1"
	}
	if v := strings.TrimSpace(os.Getenv("TRADER_TRADING_MODE")); v != "" {
		c.TradingMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("TRADER_LOG_LEVEL")); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// FXProduct returns the leveraged product code traded by the engine.
func (c Config) FXProduct() string {
	return "FX_" + c.Product
}
