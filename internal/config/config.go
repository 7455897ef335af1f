package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	DB           DBConfig           `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Chain        ChainConfig        `mapstructure:"chain"`
	Fetch        FetchConfig        `mapstructure:"fetch"`
	Marketplaces MarketplacesConfig `mapstructure:"marketplaces"`
	Rate         RateConfig         `mapstructure:"rate"`
	Scrape       ScrapeConfig       `mapstructure:"scrape"`
	Jobs         []JobConfig        `mapstructure:"jobs"`
	Collections  CollectionsConfig  `mapstructure:"collections"`
	Claim        ClaimConfig        `mapstructure:"claim"`
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

// RedisConfig is optional; an empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ChainConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type FetchConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

type MarketplaceConfig struct {
	Contract string `mapstructure:"contract"`
	BaseURL  string `mapstructure:"base_url"`
}

type MarketplacesConfig struct {
	Deadrare     MarketplaceConfig `mapstructure:"deadrare"`
	Frameit      MarketplaceConfig `mapstructure:"frameit"`
	Xoxno        MarketplaceConfig `mapstructure:"xoxno"`
	ElrondMarket MarketplaceConfig `mapstructure:"elrond"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	UserAgent    string            `mapstructure:"user_agent"`
}

type RateConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	CoinID   string        `mapstructure:"coin_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ScrapeConfig struct {
	PageSize        int           `mapstructure:"page_size"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay"`
	NativeToken     string        `mapstructure:"native_token"`
}

// JobConfig describes one reconciliation schedule. With two collections the job
// alternates between them on successive ticks.
type JobConfig struct {
	Name        string   `mapstructure:"name"`
	Schedule    string   `mapstructure:"schedule"`
	Collections []string `mapstructure:"collections"`
	Enabled     bool     `mapstructure:"enabled"`
}

type CollectionsConfig struct {
	Rotg            string   `mapstructure:"rotg"`
	Allowed         []string `mapstructure:"allowed"`
	ExcludedToken   string   `mapstructure:"excluded_token"`
	OwnerFetchLimit int      `mapstructure:"owner_fetch_limit"`
}

type ClaimConfig struct {
	Contract    string   `mapstructure:"contract"`
	Collections []string `mapstructure:"collections"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NFTM")
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
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("chain.base_url", "https://api.elrond.com")
	v.SetDefault("chain.timeout", "10s")
	v.SetDefault("chain.cache_ttl", "4s")
	v.SetDefault("fetch.max_attempts", 4)
	v.SetDefault("fetch.backoff", "1s")
	v.SetDefault("fetch.min_interval", "0s")

	v.SetDefault("marketplaces.timeout", "15s")
	v.SetDefault("marketplaces.user_agent", "nftmarket-scraper/1.0")
	v.SetDefault("marketplaces.deadrare.contract", "erd1qqqqqqqqqqqqqpgqd9rvv2n378e27jcts8vfwynpx0gfl5ufz6hqhfy0u0")
	v.SetDefault("marketplaces.deadrare.base_url", "https://deadrare.io")
	v.SetDefault("marketplaces.frameit.contract", "erd1qqqqqqqqqqqqqpgq705fxpfrjne0tl3ece0rrspykq88mynn4kxs2cg43s")
	v.SetDefault("marketplaces.frameit.base_url", "https://api.frameit.gg")
	v.SetDefault("marketplaces.xoxno.contract", "erd1qqqqqqqqqqqqqpgq6wegs2xkypfpync8mn2sa5cmpqjlvrhwz5nqgepyg8")
	v.SetDefault("marketplaces.xoxno.base_url", "https://nfts-graph.elrond.com")
	v.SetDefault("marketplaces.elrond.contract", "erd1qqqqqqqqqqqqqpgqra34kjj9zu6jvdldag72dyknnrh2ts9aj0wqp4acqh")
	v.SetDefault("marketplaces.elrond.base_url", "https://nfts-graph.elrond.com")

	v.SetDefault("rate.endpoint", "https://api.coingecko.com")
	v.SetDefault("rate.coin_id", "elrond-erd-2")
	v.SetDefault("rate.timeout", "10s")

	v.SetDefault("scrape.page_size", 100)
	v.SetDefault("scrape.politeness_delay", "500ms")
	v.SetDefault("scrape.native_token", "EGLD")

	v.SetDefault("collections.rotg", "ROTG-fc7c99")
	v.SetDefault("collections.allowed", []string{"GUARDIAN-3d6635", "ROTG-fc7c99"})
	v.SetDefault("collections.excluded_token", "WATER-9ed400")
	v.SetDefault("collections.owner_fetch_limit", 1450)

	v.SetDefault("claim.contract", "")
	v.SetDefault("claim.collections", []string{"GUARDIAN-3d6635", "ROTG-fc7c99"})

	v.SetDefault("jobs", []map[string]any{
		{
			"name":        "collection",
			"schedule":    "0 * * * * *",
			"collections": []string{"ROTG-fc7c99", "GUARDIAN-3d6635"},
			"enabled":     true,
		},
		{
			"name":        "nft",
			"schedule":    "*/30 * * * * *",
			"collections": []string{"GUARDIAN-3d6635"},
			"enabled":     false,
		},
	})

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
