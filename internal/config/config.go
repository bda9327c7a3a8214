package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string
	Database    DatabaseConfig
	Server      ServerConfig
	JWT         JWTConfig
	Log         LogConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	MinIO       MinIOConfig
	SMTP        SMTPConfig
	OpenAI      OpenAIConfig
}

type DatabaseConfig struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  string
	ShutdownTimeout time.Duration
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type LogConfig struct {
	Level  string
	Format string // text | json
}

// RedisConfig enables the session denylist when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig enables event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MinIOConfig enables PDF archiving when Endpoint is set.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SMTPConfig enables quotation mailing when Host is set.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

// envAliases binds the variable names used by earlier deployments.
var envAliases = map[string]string{
	"databaseurl":           "DATABASE_URL",
	"jwt.secret":            "JWT_SECRET",
	"server.port":           "SERVER_PORT",
	"server.allowedorigins": "ALLOWED_ORIGINS",
	"openai.apikey":         "OPENAI_API_KEY",
}

// keys lists every setting so each can be overridden from the environment,
// e.g. QUOTEDESK_REDIS_ADDR for redis.addr.
var keys = []string{
	"databaseurl", "database.maxconns", "database.maxconnlifetime",
	"server.port", "server.allowedorigins", "server.shutdowntimeout",
	"jwt.secret", "jwt.expiresin",
	"log.level", "log.format",
	"redis.addr", "redis.password", "redis.db",
	"kafka.brokers", "kafka.topic",
	"minio.endpoint", "minio.accesskey", "minio.secretkey", "minio.bucket", "minio.usessl",
	"smtp.host", "smtp.port", "smtp.username", "smtp.password", "smtp.from",
	"openai.apikey", "openai.model",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.maxconns", 10)
	v.SetDefault("database.maxconnlifetime", time.Hour)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdowntimeout", 15*time.Second)
	v.SetDefault("jwt.expiresin", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("kafka.topic", "quotations")
	v.SetDefault("minio.bucket", "quotations")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("openai.model", "gpt-4o-mini")
}

// Load reads .env, an optional config.toml (from ./config or .), and QUOTEDESK_*
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	configName := "config"
	if name := os.Getenv("CONFIG_NAME"); name != "" {
		configName = name
	}
	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	for _, key := range keys {
		names := []string{key, "QUOTEDESK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if alias, ok := envAliases[key]; ok {
			names = append(names, alias)
		}
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	log.WithField("file", v.ConfigFileUsed()).Debug("config parsed")
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}
