package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cron      CronConfig      `mapstructure:"cron"`
	Venue     VenueConfig     `mapstructure:"venue"`
	Cycle     CycleConfig     `mapstructure:"cycle"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	// Driver is postgres or memory. The memory store forgets every hash on restart.
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	CandidateTTL time.Duration `mapstructure:"candidate_ttl"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	FlipCycle      string `mapstructure:"flip_cycle"`
	CatalogRefresh string `mapstructure:"catalog_refresh"`
	HistoryPrune   string `mapstructure:"history_prune"`
}

type VenueConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxAuctionPages int           `mapstructure:"max_auction_pages"`
	PageConcurrency int           `mapstructure:"page_concurrency"`
}

type CycleConfig struct {
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	AuctionShards int           `mapstructure:"auction_shards"`
}

type NotifyConfig struct {
	WebhookURL       string        `mapstructure:"webhook_url"`
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	TelegramChatID   string        `mapstructure:"telegram_chat_id"`
	MinEdge          float64       `mapstructure:"min_edge"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type RetentionConfig struct {
	CandidateDays int `mapstructure:"candidate_days"`
	CycleDays     int `mapstructure:"cycle_days"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SKYFLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("store.driver", StoreDriverPostgres)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "skyflip:")
	v.SetDefault("redis.candidate_ttl", "2m")
	v.SetDefault("redis.lock_ttl", "1m")

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.flip_cycle", "@every 5s")
	v.SetDefault("cron.catalog_refresh", "@every 10m")
	v.SetDefault("cron.history_prune", "0 30 3 * * *")

	v.SetDefault("venue.base_url", "https://api.hypixel.net")
	v.SetDefault("venue.api_key", "")
	v.SetDefault("venue.timeout", "15s")
	v.SetDefault("venue.max_auction_pages", 100)
	v.SetDefault("venue.page_concurrency", 8)

	v.SetDefault("cycle.fetch_timeout", "30s")
	v.SetDefault("cycle.auction_shards", 8)

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.telegram_bot_token", "")
	v.SetDefault("notify.telegram_chat_id", "")
	v.SetDefault("notify.min_edge", 1.2)
	v.SetDefault("notify.timeout", "10s")

	v.SetDefault("retention.candidate_days", 14)
	v.SetDefault("retention.cycle_days", 30)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
