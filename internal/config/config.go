// Package config loads application configuration from config.yaml with
// environment-variable overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Participation ParticipationConfig `mapstructure:"participation"`
	App           AppConfig           `mapstructure:"app"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

type RedisConfig struct {
	// Addr empty disables the cache entirely.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	// Brokers empty falls back to the logging publisher.
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type AuthConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// ParticipationConfig gates the two behaviors the legacy system left
// ambiguous. Both default to the observed legacy behavior (off).
type ParticipationConfig struct {
	// AllowRejoin excludes cancelled records from the duplicate check,
	// letting a user register again after cancelling.
	AllowRejoin bool `mapstructure:"allow_rejoin"`
	// AllowWaitlistCancel lets a waitlisted participation be cancelled.
	AllowWaitlistCancel bool `mapstructure:"allow_waitlist_cancel"`
}

type AppConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Load reads config.yaml from the given path (or the working directory
// when empty), applies defaults, and allows EXCHANGE_* env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix("EXCHANGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine: defaults plus env cover local runs.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.env", "development")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "exchange_events")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "participation-events")

	v.SetDefault("auth.secret", "dev-secret-change-in-production")
	v.SetDefault("auth.expiration", 24*time.Hour)

	v.SetDefault("participation.allow_rejoin", false)
	v.SetDefault("participation.allow_waitlist_cancel", false)

	v.SetDefault("app.cache_ttl", 5*time.Minute)
}
