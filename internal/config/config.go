package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// PENDATAAN_HTTP_ADDR.
const EnvPrefix = "pendataan"

type Config struct {
	HTTPAddr string `yaml:"httpAddr" envconfig:"HTTP_ADDR"`
	GRPCAddr string `yaml:"grpcAddr" envconfig:"GRPC_ADDR"`

	// DatabaseURL selects the Postgres store. When empty the embedded sqlite
	// store at SQLitePath is used; an empty SQLitePath keeps it in memory.
	DatabaseURL string `yaml:"databaseUrl" envconfig:"DATABASE_URL"`
	SQLitePath  string `yaml:"sqlitePath"  envconfig:"SQLITE_PATH"`

	// RedisAddr selects the shared cache. When empty an in-process cache is
	// used.
	RedisAddr     string        `yaml:"redisAddr"     envconfig:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redisPassword" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redisDb"       envconfig:"REDIS_DB"`
	CacheMaxBytes int64         `yaml:"cacheMaxBytes" envconfig:"CACHE_MAX_BYTES"`
	CacheTTL      time.Duration `yaml:"cacheTtl"      envconfig:"CACHE_TTL"`

	JWTSecret      string        `yaml:"jwtSecret"      envconfig:"JWT_SECRET"`
	JWTIssuer      string        `yaml:"jwtIssuer"      envconfig:"JWT_ISSUER"`
	AccessTokenTTL time.Duration `yaml:"accessTokenTtl" envconfig:"ACCESS_TOKEN_TTL"`

	StatsWarmInterval time.Duration `yaml:"statsWarmInterval" envconfig:"STATS_WARM_INTERVAL"`
	StatsWarmTimeout  time.Duration `yaml:"statsWarmTimeout"  envconfig:"STATS_WARM_TIMEOUT"`

	Debug bool `yaml:"debug" envconfig:"DEBUG"`
}

func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		GRPCAddr:          ":9090",
		CacheMaxBytes:     64 << 20,
		CacheTTL:          5 * time.Minute,
		JWTSecret:         "dev-secret",
		JWTIssuer:         "pendataan",
		AccessTokenTTL:    12 * time.Hour,
		StatsWarmInterval: time.Minute,
		StatsWarmTimeout:  10 * time.Second,
	}
}

// Load starts from the defaults, overlays the YAML file at path when one is
// given and finally applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("httpAddr must not be empty"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwtSecret must not be empty"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("accessTokenTtl must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cacheTtl must be positive"))
	}
	if c.StatsWarmInterval < 0 {
		errs = append(errs, errors.New("statsWarmInterval must not be negative"))
	}
	return errors.Join(errs...)
}
