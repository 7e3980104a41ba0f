package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SUNGROW"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Decode   DecodeConfig   `mapstructure:"decode"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig configures the HTTP API. With an empty JWTSecret the reload
// endpoint accepts requests without a bearer token.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// CatalogConfig selects where the register catalog comes from. An empty
// ProfilePath means the compiled-in string inverter catalog.
type CatalogConfig struct {
	ProfilePath  string   `mapstructure:"profile_path"`
	SearchPaths  []string `mapstructure:"search_paths"`
	DefaultModel string   `mapstructure:"default_model"`
}

// DecodeConfig controls decoding while the device model is unknown.
type DecodeConfig struct {
	Optimistic bool `mapstructure:"optimistic"`
}

// DatabaseConfig is only used when publishing profiles.
type DatabaseConfig struct {
	PublishOnStart bool   `mapstructure:"publish_on_start"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// Load reads the YAML file at path, if any, over the defaults. Every key
// can be overridden from the environment, e.g. SUNGROW_SERVER_HTTP_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", "24h")
	v.SetDefault("log.development", false)
	v.SetDefault("catalog.profile_path", "")
	v.SetDefault("catalog.search_paths", []string{"./profiles"})
	v.SetDefault("catalog.default_model", "")
	v.SetDefault("decode.optimistic", true)
	v.SetDefault("database.publish_on_start", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "sungrow")
	v.SetDefault("database.user", "sungrow")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_connections", 4)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
