package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type App struct {
	Name string
	Env  string
}

type Log struct {
	Level      string
	JSON       bool
	File       string // 为空则只输出到 stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Store selects the persistent store backend: memory | file | redis | gorm.
type Store struct {
	Driver string
	Dir    string // file driver only
	Prefix string // redis key prefix
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type SeedUser struct {
	Name           string `mapstructure:"name"`
	Email          string `mapstructure:"email"`
	PasswordDigest string `mapstructure:"passwordDigest"`
}

type Auth struct {
	HashAlgorithm string     `mapstructure:"hashAlgorithm"`
	WorkFactor    int        `mapstructure:"workFactor"`
	MinDelayMs    int        `mapstructure:"minDelayMs"`
	MaxDelayMs    int        `mapstructure:"maxDelayMs"`
	SeedUsers     []SeedUser `mapstructure:"seedUsers"`
}

type Config struct {
	App   App
	Log   Log
	Store Store
	Redis Redis `mapstructure:"redis"`
	DB    DB
	Auth  Auth `mapstructure:"auth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-core")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.maxSizeMB", 50)
	v.SetDefault("log.maxBackups", 5)
	v.SetDefault("log.maxAgeDays", 14)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", "./data")
	v.SetDefault("store.prefix", "")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "./data/auth.db")
	v.SetDefault("db.maxOpenConns", 10)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")
	v.SetDefault("auth.hashAlgorithm", "bcrypt")
	v.SetDefault("auth.workFactor", 10)
	v.SetDefault("auth.minDelayMs", 100)
	v.SetDefault("auth.maxDelayMs", 1000)
}

// Read loads path (yaml) on top of the defaults; APP_* env vars override both,
// e.g. APP_AUTH_WORKFACTOR=12. A missing file is not an error.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolvePath falls back to CONFIG_PATH, then ./configs/config.local.yaml.
func ResolvePath(path string) string {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	return path
}

// Load is Read for process start; it exits on error.
func Load(path string) *Config {
	c, err := Read(ResolvePath(path))
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "file", "redis", "gorm":
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "file" && c.Store.Dir == "" {
		return fmt.Errorf("config: store.dir is required for the file driver")
	}
	if c.Store.Driver == "gorm" {
		switch c.DB.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			return fmt.Errorf("config: unknown db.driver %q", c.DB.Driver)
		}
	}
	switch c.Auth.HashAlgorithm {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("config: unknown auth.hashAlgorithm %q", c.Auth.HashAlgorithm)
	}
	if c.Auth.WorkFactor < 0 {
		return fmt.Errorf("config: auth.workFactor must not be negative")
	}
	if c.Auth.MinDelayMs < 0 || c.Auth.MaxDelayMs < 0 {
		return fmt.Errorf("config: auth delays must not be negative")
	}
	if c.Auth.MinDelayMs > c.Auth.MaxDelayMs {
		return fmt.Errorf("config: auth.minDelayMs (%d) > auth.maxDelayMs (%d)", c.Auth.MinDelayMs, c.Auth.MaxDelayMs)
	}
	for i, u := range c.Auth.SeedUsers {
		if u.Email == "" || u.PasswordDigest == "" {
			return fmt.Errorf("config: auth.seedUsers[%d] needs email and passwordDigest", i)
		}
	}
	return nil
}
