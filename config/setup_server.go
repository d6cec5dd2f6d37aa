package config

import (
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
	"net/http"
	"os"
	"time"
)

type AppConfig struct {
	DatabaseConfig DatabaseConfig `yaml:"databaseConfig"`
	RedisConfig    RedisConfig    `yaml:"redisConfig"`
	ServerAddr     string         `yaml:"serverAddr"`
	S3Config       S3Config       `yaml:"s3Config"`
	Storage        StorageConfig  `yaml:"storage"`
	Source         SourceConfig   `yaml:"source"`
	Fetch          FetchConfig    `yaml:"fetch"`
	TTL            TTL            `yaml:"TTL"`
	Auth           AuthConfig     `yaml:"auth"`
	Log            LogConfig      `yaml:"log"`
}

func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults : заполняет необязательные поля значениями по умолчанию
func (cfg *AppConfig) applyDefaults() {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./cache"
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://www.studydrive.net"
	}
	if cfg.Source.APIURL == "" {
		cfg.Source.APIURL = cfg.Source.BaseURL + "/api"
	}
	if len(cfg.Source.Hosts) == 0 {
		cfg.Source.Hosts = []string{"studydrive.net"}
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Source.MaxPayloadBytes == 0 {
		cfg.Source.MaxPayloadBytes = 100 << 20
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = "studydrive-downloader/1.0"
	}
	if cfg.Fetch.Workers == 0 {
		cfg.Fetch.Workers = 8
	}
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 3
	}
	if cfg.Fetch.RetryDelay == 0 {
		cfg.Fetch.RetryDelay = time.Second
	}
	if cfg.TTL.Download == 0 {
		cfg.TTL.Download = 10 * time.Minute
	}
	if cfg.TTL.DocumentCache == 0 {
		cfg.TTL.DocumentCache = 24 * time.Hour
	}
	if cfg.TTL.FetchLock == 0 {
		cfg.TTL.FetchLock = 5 * time.Minute
	}
	if cfg.TTL.CounterRead == 0 {
		cfg.TTL.CounterRead = 5 * time.Second
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "studydrive-downloader"
	}
	if cfg.Auth.ServiceTokenTTL == 0 {
		cfg.Auth.ServiceTokenTTL = 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate : проверяет, что с конфигурацией вообще можно стартовать
func (cfg *AppConfig) Validate() error {
	if cfg.DatabaseConfig.DSN == "" {
		return errors.New("не задан databaseConfig.dsn")
	}
	switch cfg.Storage.Backend {
	case "local":
	case "s3":
		if cfg.S3Config.Bucket == "" {
			return errors.New("для storage.backend=s3 нужен s3Config.bucket")
		}
	default:
		return fmt.Errorf("неизвестный storage.backend: %q", cfg.Storage.Backend)
	}
	if cfg.RedisConfig.Enabled && cfg.RedisConfig.Addr == "" {
		return errors.New("redisConfig.enabled=true, но не задан redisConfig.addr")
	}
	if cfg.Auth.Enabled && cfg.Auth.SecretKey == "" {
		return errors.New("auth.enabled=true, но не задан auth.secret_key")
	}
	return nil
}

func SetupServer(serverAddress string) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server, router
}

func SetupDatabase(dsn string) (*Database, error) {
	return NewDatabaseConnection("postgres", dsn)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
