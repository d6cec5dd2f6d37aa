package config

import "time"

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Local    bool   `yaml:"local"`
}

// StorageConfig : где лежат скачанные файлы и превью
type StorageConfig struct {
	Backend string `yaml:"backend"` // local | s3
	Dir     string `yaml:"dir"`
}

// SourceConfig : описание стороннего сервиса, с которого скачиваются документы
type SourceConfig struct {
	BaseURL         string        `yaml:"baseURL"`
	APIURL          string        `yaml:"apiURL"`
	Hosts           []string      `yaml:"hosts"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxPayloadBytes int64         `yaml:"maxPayloadBytes"`
	UserAgent       string        `yaml:"userAgent"`
}

type FetchConfig struct {
	Workers     int64         `yaml:"workers"`
	MaxAttempts uint64        `yaml:"maxAttempts"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
}

type TTL struct {
	Download      time.Duration `yaml:"download"`
	DocumentCache time.Duration `yaml:"documentCache"`
	FetchLock     time.Duration `yaml:"fetchLock"`
	CounterRead   time.Duration `yaml:"counterRead"`
}

type AuthConfig struct {
	Enabled         bool          `yaml:"enabled"`
	SecretKey       string        `yaml:"secret_key"`
	AdminToken      string        `yaml:"admin_token"`
	Issuer          string        `yaml:"issuer"`
	ServiceTokenTTL time.Duration `yaml:"service_token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
