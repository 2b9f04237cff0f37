package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"yatube/cache"
	"yatube/database"
	"yatube/domain"
)

// envPrefix prefixes every environment variable that overrides the config, e.g. YATUBE_PORT.
const envPrefix = "yatube"

// Config holds every setting of the app.
type Config struct {
	Port       int             `json:"port"`
	Env        string          `json:"env"`
	Pepper     string          `json:"pepper"`
	HMACKey    string          `json:"hmac_key" split_words:"true"`
	CSRFKey    string          `json:"csrf_key" split_words:"true"`
	PageSize   int             `json:"page_size" split_words:"true"`
	MediaDir   string          `json:"media_dir" split_words:"true"`
	GroupsFile string          `json:"groups_file" split_words:"true"`
	LogLevel   string          `json:"log_level" split_words:"true"`
	Database   database.Config `json:"database"`
	Cache      CacheConfig     `json:"cache"`
}

// CacheConfig selects where cached pages live.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend    string            `json:"backend"`
	TTLSeconds int               `json:"ttl_seconds" split_words:"true"`
	Size       int               `json:"size"`
	Redis      cache.RedisConfig `json:"redis"`
}

// TTL is how long a page stays cached.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// DefaultConfig is a development setup on the local machine.
func DefaultConfig() Config {
	return Config{
		Port:     8000,
		Env:      "dev",
		Pepper:   "secret-random-string",
		HMACKey:  "secret-hmac-key",
		PageSize: domain.DefaultPageSize,
		MediaDir: "media",
		LogLevel: "info",
		Database: database.DefaultConfig(),
		Cache: CacheConfig{
			Backend:    "memory",
			TTLSeconds: int(cache.DefaultTTL / time.Second),
			Size:       128,
			Redis: cache.RedisConfig{
				Addr: "localhost:6379",
			},
		},
	}
}

// LoadConfig builds the config in layers: defaults, then the json file at path, then
// environment variables. Outside production a .env file is loaded into the environment
// first. In production the json file is required.
func LoadConfig(path string, isProd bool) (Config, error) {
	c := DefaultConfig()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&c); err != nil {
			return c, errors.Wrapf(err, "decoding %s", path)
		}
		log.WithField("path", path).Info("loaded config file")
	case isProd:
		return c, errors.Wrapf(err, "config file %s is required in production", path)
	}

	if !isProd {
		if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("couldn't load .env")
		}
	}
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return c, errors.Wrap(err, "reading environment")
	}
	if isProd {
		c.Env = "prod"
	}
	return c, nil
}
