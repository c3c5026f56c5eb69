package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pion/stun/v3"
	"github.com/spf13/viper"
)

type JWT struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Realm  string        `mapstructure:"realm"`
}

type Store struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type Rate struct {
	EventsPerSecond float64 `mapstructure:"events_per_second"`
	Burst           int     `mapstructure:"burst"`
}

type Chat struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log_level"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	SendBuffer    int           `mapstructure:"send_buffer"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
	SlowConsumer  string        `mapstructure:"slow_consumer"`
	CORSOrigin    string        `mapstructure:"cors_origin"`
	JWT           JWT           `mapstructure:"jwt"`
	Store         Store         `mapstructure:"store"`
	Rate          Rate          `mapstructure:"rate"`
	Chat          Chat          `mapstructure:"chat"`
	ICEServers    []ICEServer   `mapstructure:"ice_servers"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("verify_timeout", "3s")
	v.SetDefault("slow_consumer", "disconnect")
	v.SetDefault("cors_origin", "*")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("jwt.realm", "meet")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("rate.events_per_second", 20)
	v.SetDefault("rate.burst", 40)
	v.SetDefault("chat.history_limit", 500)
	v.SetDefault("ice_servers", []map[string]any{{"urls": []string{"stun:stun.l.google.com:19302"}}})
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). A .env file
// in the working directory is applied to the environment first, and MEET_*
// variables override file values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load with an explicit path; a missing file means defaults.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("MEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Fprintf(os.Stderr, "✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "🧩 Mode: %s | Port: %d | Store: %s\n", cfg.Mode, cfg.Port, cfg.Store.Driver)
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("mode must be debug, release or test, got %q", c.Mode))
	}
	if c.Mode == "release" && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required in release mode"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for %s", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.SlowConsumer {
	case "disconnect", "drop":
	default:
		errs = append(errs, fmt.Errorf("slow_consumer must be disconnect or drop, got %q", c.SlowConsumer))
	}
	for name, d := range map[string]time.Duration{
		"store_timeout":  c.StoreTimeout,
		"verify_timeout": c.VerifyTimeout,
		"ping_period":    c.PingPeriod,
		"jwt.ttl":        c.JWT.TTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.SendBuffer <= 0 || c.ReadLimit <= 0 {
		errs = append(errs, errors.New("send_buffer and read_limit must be positive"))
	}
	if c.Rate.EventsPerSecond <= 0 || c.Rate.Burst <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	for i, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			errs = append(errs, fmt.Errorf("ice_servers[%d] has no urls", i))
		}
		for _, u := range s.URLs {
			if _, err := stun.ParseURI(u); err != nil {
				errs = append(errs, fmt.Errorf("ice_servers[%d]: %q: %w", i, u, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
