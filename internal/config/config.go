package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockDurationMs   = 7_200_000
	DefaultBcryptCost       = 12
	DefaultAccessTokenTTL   = 15 * time.Minute
	DefaultRefreshTokenTTL  = 7 * 24 * time.Hour
)

type AppConf struct {
	Name           string        `mapstructure:"name"`
	Env            string        `mapstructure:"env"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ShutdownSecond int           `mapstructure:"shutdown_seconds"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	CookieDomain   string        `mapstructure:"cookie_domain"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

type MongoConf struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	Admins      string `mapstructure:"admins_collection"`
	Authors     string `mapstructure:"authors_collection"`
	Users       string `mapstructure:"users_collection"`
	Categories  string `mapstructure:"categories_collection"`
	News        string `mapstructure:"news_collection"`
	Media       string `mapstructure:"media_collection"`
	ConnectWait int    `mapstructure:"connect_wait_seconds"`
}

type RedisConf struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	Prefix        string `mapstructure:"prefix"`
	NewsCacheTTLS int    `mapstructure:"news_cache_ttl_seconds"`
}

type KafkaConf struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	TopicNewsEvents   string   `mapstructure:"topic_news_events"`
	TopicAccountEvent string   `mapstructure:"topic_account_events"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	PublicRead     bool  `mapstructure:"public_read"`
	PresignTTL     int   `mapstructure:"presign_ttl_seconds"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// AuthConf holds token and lockout settings. Zero values are replaced by
// the package defaults in Load.
type AuthConf struct {
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	AccessTokenSecret  string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret"`
	MaxLoginAttempts   int           `mapstructure:"max_login_attempts"`
	LockDurationMs     int64         `mapstructure:"lock_duration_ms"`
	BcryptCost         int           `mapstructure:"bcrypt_cost"`
	VerifyCodeTTL      time.Duration `mapstructure:"verify_code_ttl"`
}

type RateLimitConf struct {
	PerMinute      int `mapstructure:"per_minute"`
	Burst          int `mapstructure:"burst"`
	LoginPerWindow int `mapstructure:"login_per_window"`
	LoginWindowSec int `mapstructure:"login_window_seconds"`
}

type ConsulConf struct {
	Enabled     bool   `mapstructure:"enabled"`
	Addr        string `mapstructure:"addr"`
	ServiceName string `mapstructure:"service_name"`
	ServiceAddr string `mapstructure:"service_addr"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongo"`
	Redis     RedisConf     `mapstructure:"redis"`
	Kafka     KafkaConf     `mapstructure:"kafka"`
	AWS       AWSConf       `mapstructure:"aws"`
	S3        S3Conf        `mapstructure:"s3"`
	Auth      AuthConf      `mapstructure:"auth"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
	Consul    ConsulConf    `mapstructure:"consul"`
	Log       struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	LockDuration    time.Duration
	NewsCacheTTL    time.Duration
	PresignTTL      time.Duration
	LoginWindow     time.Duration
}

// Load reads the YAML file at path, applies environment overrides
// (AUTH_ACCESS_TOKEN_SECRET overrides auth.access_token_secret and so on)
// and fills defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if env := os.Getenv("CONFIG_PATH"); env != "" {
		path = env
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(v, &cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AutomaticEnv only resolves keys viper already knows about, so the
// secrets that normally live only in the environment are bound explicitly.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"mongo.uri",
		"redis.addr",
		"redis.password",
		"auth.access_token_secret",
		"auth.refresh_token_secret",
		"aws.bucket",
		"aws.region",
		"kafka.brokers",
	} {
		_ = v.BindEnv(key)
	}
}

func applyDefaults(v *viper.Viper, cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "newsroom-service"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.ShutdownSecond == 0 {
		cfg.App.ShutdownSecond = 15
	}
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSecond) * time.Second

	if cfg.Mongo.Admins == "" {
		cfg.Mongo.Admins = "admins"
	}
	if cfg.Mongo.Authors == "" {
		cfg.Mongo.Authors = "authors"
	}
	if cfg.Mongo.Users == "" {
		cfg.Mongo.Users = "users"
	}
	if cfg.Mongo.Categories == "" {
		cfg.Mongo.Categories = "categories"
	}
	if cfg.Mongo.News == "" {
		cfg.Mongo.News = "news"
	}
	if cfg.Mongo.Media == "" {
		cfg.Mongo.Media = "media"
	}
	if cfg.Mongo.ConnectWait == 0 {
		cfg.Mongo.ConnectWait = 30
	}

	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "newsroom"
	}
	if cfg.Redis.NewsCacheTTLS == 0 {
		cfg.Redis.NewsCacheTTLS = 300
	}
	cfg.NewsCacheTTL = time.Duration(cfg.Redis.NewsCacheTTLS) * time.Second

	if cfg.Kafka.TopicNewsEvents == "" {
		cfg.Kafka.TopicNewsEvents = "news.events"
	}
	if cfg.Kafka.TopicAccountEvent == "" {
		cfg.Kafka.TopicAccountEvent = "account.events"
	}

	if cfg.S3.PresignTTL == 0 {
		cfg.S3.PresignTTL = 600
	}
	cfg.PresignTTL = time.Duration(cfg.S3.PresignTTL) * time.Second
	if cfg.S3.MaxUploadBytes == 0 {
		cfg.S3.MaxUploadBytes = 10 * 1024 * 1024
	}

	// A zero threshold would lock every account after one failure, so an
	// unset key and a non-positive value both fall back to the default.
	if !v.IsSet("auth.max_login_attempts") || cfg.Auth.MaxLoginAttempts <= 0 {
		cfg.Auth.MaxLoginAttempts = DefaultMaxLoginAttempts
	}
	if !v.IsSet("auth.lock_duration_ms") || cfg.Auth.LockDurationMs <= 0 {
		cfg.Auth.LockDurationMs = DefaultLockDurationMs
	}
	cfg.LockDuration = time.Duration(cfg.Auth.LockDurationMs) * time.Millisecond
	if !v.IsSet("auth.bcrypt_cost") || cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = DefaultBcryptCost
	}
	if cfg.Auth.AccessTokenTTL <= 0 {
		cfg.Auth.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.Auth.RefreshTokenTTL <= 0 {
		cfg.Auth.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.Auth.VerifyCodeTTL <= 0 {
		cfg.Auth.VerifyCodeTTL = 15 * time.Minute
	}

	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 120
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.RateLimit.LoginPerWindow == 0 {
		cfg.RateLimit.LoginPerWindow = 10
	}
	if cfg.RateLimit.LoginWindowSec == 0 {
		cfg.RateLimit.LoginWindowSec = 60
	}
	cfg.LoginWindow = time.Duration(cfg.RateLimit.LoginWindowSec) * time.Second

	if cfg.Consul.ServiceName == "" {
		cfg.Consul.ServiceName = cfg.App.Name
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func validate(cfg *Config) error {
	if cfg.Mongo.URI == "" {
		return errors.New("mongo.uri is empty (set MONGO_URI)")
	}
	if cfg.Mongo.Database == "" {
		return errors.New("mongo.database is missing")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr missing (set REDIS_ADDR)")
	}
	if cfg.Auth.AccessTokenSecret == "" || cfg.Auth.RefreshTokenSecret == "" {
		return errors.New("auth.access_token_secret and auth.refresh_token_secret are required")
	}
	if cfg.Auth.AccessTokenSecret == cfg.Auth.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled but no brokers configured")
	}
	if cfg.AWS.Bucket == "" {
		return errors.New("aws.bucket is missing")
	}
	return nil
}
