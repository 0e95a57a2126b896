package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"

	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type Config struct {
	LogLevel          string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string  `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Storage           Storage `yaml:"storage"`
	SQLiteStoragePath string  `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"game.db"`
	Redis             Redis   `yaml:"redis"`
	Session           Session `yaml:"session"`
	Oracle            Oracle  `yaml:"oracle"`
	Tree              Tree    `yaml:"tree"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"redis"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Session struct {
	Store string        `yaml:"store" env:"SESSION_STORE" env-default:"redis"`
	TTL   time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
}

type Oracle struct {
	BaseURL string        `yaml:"base-url" env:"ORACLE_BASE_URL" env-default:"https://api.rawg.io/api"`
	APIKey  string        `yaml:"api-key" env:"ORACLE_API_KEY" env-default:""`
	Timeout time.Duration `yaml:"timeout" env:"ORACLE_TIMEOUT" env-default:"3s"`
}

type Tree struct {
	RootText string `yaml:"root-text" env:"TREE_ROOT_TEXT" env-default:"Minecraft"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) validate() error {
	switch that.Storage.Driver {
	case DriverRedis, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", that.Storage.Driver)
	}

	switch that.Session.Store {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("unknown session store %q", that.Session.Store)
	}

	return nil
}

// NeedsRedis reports whether any configured backend talks to redis.
func (that *Config) NeedsRedis() bool {
	return that.Storage.Driver == DriverRedis || that.Session.Store == SessionStoreRedis
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
