package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds application configuration. Values come from defaults, an
// optional YAML file named by CONFIG_FILE, a local .env file and the process
// environment, in increasing order of precedence.
type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	DB struct {
		Path string
	} `mapstructure:"db"`

	Log struct {
		Level string
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Redis struct {
		Addr     string
		Password string
		DB       int
	} `mapstructure:"redis"`

	Cache struct {
		TTL time.Duration
	} `mapstructure:"cache"`

	Seed struct {
		Catalog bool
	} `mapstructure:"seed"`
}

// IsDev reports whether the app runs in the development environment.
func (c Config) IsDev() bool { return c.App.Env == "dev" }

// Load reads configuration. dotenvPath may be empty to skip the .env file; a
// missing file is not an error.
func Load(dotenvPath string) (Config, error) {
	var c Config

	if dotenvPath != "" {
		// gotenv.Load never overwrites variables that are already set.
		if err := gotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return c, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	v := viper.New()
	v.SetDefault("app.env", "prod")
	v.SetDefault("http.addr", ":3001")
	v.SetDefault("db.path", "./smeta.db")
	v.SetDefault("log.level", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("seed.catalog", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}
