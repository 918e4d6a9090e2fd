package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverRest  = "rest"
	DriverMongo = "mongo"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type SiteConfig struct {
	Name         string   `yaml:"name" env-default:"BabyKK"`
	PublicURL    string   `yaml:"public_url" env-default:"http://localhost:8080"`
	TelegramURL  string   `yaml:"telegram_url" env-default:"https://t.me/babykk001"`
	MediaBaseURL string   `yaml:"media_base_url" env-default:""`
	PreviewFiles []string `yaml:"preview_files"`
}

type StoreConfig struct {
	Driver  string        `yaml:"driver" env-default:"rest"`
	URL     string        `yaml:"url" env-default:""`
	APIKey  string        `yaml:"api_key" env-default:""`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type MongoConfig struct {
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"tiergate"`
}

type IPLookupConfig struct {
	URL     string        `yaml:"url" env-default:"https://api.ipify.org?format=json"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type SessionConfig struct {
	Secret string `yaml:"secret" env-default:""`
	Name   string `yaml:"name" env-default:"tiergate"`
	MaxAge int    `yaml:"max_age" env-default:"2592000"`
	Secure bool   `yaml:"secure" env-default:"false"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env-default:"20"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled" env-default:"false"`
	ApiKey   string  `yaml:"api_key" env-default:""`
	AdminIds []int64 `yaml:"admin_ids"`
}

type TierConfig struct {
	Tier               int     `yaml:"tier"`
	ContentDescription string  `yaml:"content_description"`
	PriceUSD           float64 `yaml:"price_usd"`
	RequiredInvites    int     `yaml:"required_invites"`
}

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	Listen    Listen          `yaml:"listen"`
	Site      SiteConfig      `yaml:"site"`
	Store     StoreConfig     `yaml:"store"`
	Mongo     MongoConfig     `yaml:"mongo"`
	IPLookup  IPLookupConfig  `yaml:"ip_lookup"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Tiers     []TierConfig    `yaml:"tiers"`
}

var defaultPreviewFiles = []string{
	"IMG_3122.MOV", "IMG_3123.MOV", "IMG_3124.MOV",
	"IMG_3125.MOV", "IMG_3126.MOV", "IMG_3127.MOV",
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance, err = Load(path)
		if err != nil {
			log.Fatal(err)
		}
	})
	return instance
}

// Load reads and checks a config file without the process-wide singleton.
func Load(path string) (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if len(conf.Site.PreviewFiles) == 0 {
		conf.Site.PreviewFiles = append([]string(nil), defaultPreviewFiles...)
	}
	if err := conf.check(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

func (c *Config) check() error {
	switch c.Store.Driver {
	case DriverRest:
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for the rest driver")
		}
	case DriverMongo:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 bytes")
	}
	if c.Telegram.Enabled && c.Telegram.ApiKey == "" {
		return fmt.Errorf("telegram.api_key is required when telegram is enabled")
	}
	return nil
}
