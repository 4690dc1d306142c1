package config

import (
	"os"
	"time"

	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"

	"github.com/ilyakaznacheev/cleanenv"
	log "github.com/sirupsen/logrus"

	"github.com/joho/godotenv"
)

type (
	Config struct {
		App        `yaml:"app"`
		Log        `yaml:"log"`
		Perf       `yaml:"performance"`
		PG         `yaml:"postgres"`
		HTTP       `yaml:"http"`
		GRPC       `yaml:"grpc"`
		Prometheus `yaml:"prometheus"`
		Kafka      `yaml:"kafka"`
		Redis      `yaml:"redis"`
		RateLimit  `yaml:"rate_limit"`
		Auth       `yaml:"auth"`
		Errors     `yaml:"errors"`
	}

	App struct {
		Name    string `yaml:"name" env-required:"true"`
		Version string `yaml:"version" env-required:"true"`
		Env     string `yaml:"env" env:"APP_ENV" env-default:"development"`
	}

	Log struct {
		Level         string        `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format        string        `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
		BufferSize    int           `yaml:"buffer_size" env:"LOG_BUFFER_SIZE" env-default:"100"`
		FlushInterval time.Duration `yaml:"flush_interval" env:"LOG_FLUSH_INTERVAL" env-default:"30s"`
		Sink          string        `yaml:"sink" env:"LOG_SINK" env-default:"none"`
	}

	Perf struct {
		BufferSize    int           `yaml:"buffer_size" env:"PERF_BUFFER_SIZE" env-default:"1000"`
		FlushInterval time.Duration `yaml:"flush_interval" env:"PERF_FLUSH_INTERVAL" env-default:"5m"`
		SlowThreshold time.Duration `yaml:"slow_threshold" env:"PERF_SLOW_THRESHOLD" env-default:"1s"`
	}

	PG struct {
		MaxPoolSize int    `env-required:"true" env:"MAX_POOL_SIZE" yaml:"max_pool_size"`
		URL         string `env-required:"true" env:"PG_URL"`
	}

	HTTP struct {
		Port string `env-required:"true" yaml:"port" env:"HTTP_PORT"`
	}

	Prometheus struct {
		Port string `env-required:"true" yaml:"port" env:"PROMETHEUS_PORT"`
	}

	GRPC struct {
		Port string `env-required:"true" yaml:"port" env:"GRPC_PORT"`
	}

	Kafka struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"jewelcrm.event-logs"`
	}

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	}

	RateLimit struct {
		Backend     string        `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"memory"`
		MaxRequests int           `yaml:"max_requests" env:"RATE_LIMIT_MAX_REQUESTS" env-default:"100"`
		Window      time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	}

	Auth struct {
		JWTSecret string `env-required:"true" env:"JWT_SECRET"`
		Issuer    string `yaml:"issuer" env:"JWT_ISSUER" env-default:"jewelcrm"`
	}

	Errors struct {
		LegacyConstraintStatus bool `yaml:"legacy_constraint_status" env:"ERRORS_LEGACY_CONSTRAINT_STATUS" env-default:"false"`
	}
)

const (
	ENV_PATH          = "infra/.env.dev"
	defaultConfigPath = "infra/config.yaml"
	EnvProduction     = "production"
	LogSinkNone       = "none"
	LogSinkKafka      = "kafka"
	LogSinkPostgres   = "postgres"
	LogSinkAll        = "all"
	RateLimitMemory   = "memory"
	RateLimitRedis    = "redis"
)

func New() (*Config, error) {
	if err := godotenv.Load(ENV_PATH); err != nil {
		log.WithField("path", ENV_PATH).Debugf("No .env file loaded: %v", err)
	}

	cfg := &Config{}

	pathToConfig, ok := os.LookupEnv("APP_CONFIG_PATH")
	if !ok || pathToConfig == "" {
		log.WithField("env_var", "APP_CONFIG_PATH").
			Info("Config path is not set, using default")
		pathToConfig = defaultConfigPath
	}

	if err := cleanenv.ReadConfig(pathToConfig, cfg); err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}

	if err := cleanenv.UpdateEnv(cfg); err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}

	return cfg, nil
}

func (a App) IsProduction() bool {
	return a.Env == EnvProduction
}
