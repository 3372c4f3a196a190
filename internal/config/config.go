package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Auction   AuctionConfig
}

type ServerConfig struct {
	Port        int
	Environment string
	LogLevel    string
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type NATSConfig struct {
	Enabled       bool
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type AuthConfig struct {
	TokenSecret      string
	SessionTTL       time.Duration
	PBKDF2Iterations int
}

type RateLimitConfig struct {
	CreateLimit         int
	CreateWindow        time.Duration
	AuthLimit           int
	AuthWindow          time.Duration
	TTLSafetyMargin     time.Duration
	FailOpenOnStoreErrs bool
}

type AuctionConfig struct {
	TournamentTTL       time.Duration
	DefaultTeamSize     int
	DefaultBidIncrement int
	CatalogPath         string
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	if configPath != "" {
		viper.AddConfigPath(configPath)
	}

	viper.SetEnvPrefix("BIDHALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; env vars and defaults carry a bare deployment.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.loglevel", "info")

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dialtimeout", 5*time.Second)
	viper.SetDefault("redis.readtimeout", 3*time.Second)
	viper.SetDefault("redis.writetimeout", 3*time.Second)
	viper.SetDefault("redis.poolsize", 10)
	viper.SetDefault("redis.minidleconns", 2)

	viper.SetDefault("nats.enabled", false)
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.maxreconnect", 5)
	viper.SetDefault("nats.reconnectwait", 2*time.Second)
	viper.SetDefault("nats.timeout", 5*time.Second)

	viper.SetDefault("auth.sessionttl", 24*time.Hour)
	viper.SetDefault("auth.pbkdf2iterations", 100_000)

	viper.SetDefault("ratelimit.createlimit", 3)
	viper.SetDefault("ratelimit.createwindow", time.Hour)
	viper.SetDefault("ratelimit.authlimit", 10)
	viper.SetDefault("ratelimit.authwindow", 15*time.Minute)
	viper.SetDefault("ratelimit.ttlsafetymargin", time.Minute)
	viper.SetDefault("ratelimit.failopenonstoreerrs", true)

	viper.SetDefault("auction.tournamentttl", 90*24*time.Hour)
	viper.SetDefault("auction.defaultteamsize", 11)
	viper.SetDefault("auction.defaultbidincrement", 5)
	viper.SetDefault("auction.catalogpath", "./catalog")
}
