package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Host string
	Port string
}

type RedisCache struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
}

type Postgres struct {
	// Driver is the database/sql driver name: "postgres" (lib/pq) or "pgx".
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
}

type Admission struct {
	Strategy string
	MaxRetry int
}

type Telemetry struct {
	// Endpoint is the OTLP/HTTP collector address. Tracing is a no-op when empty.
	Endpoint    string
	ServiceName string
}

type Config struct {
	HTTP      HTTPServer
	Redis     RedisCache
	Postgres  Postgres
	Admission Admission
	Telemetry Telemetry

	// Storage is "memory" or "postgres".
	Storage  string
	Mode     string
	LogLevel string
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	ModeReadOnly = "RO"
)

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	cfg, err := LoadFrom(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msgf("%s err loading env from file", logtag)
	}
	return cfg
}

// LoadFrom reads env from path (or .env when path is empty) and materialises
// the config. Variables already present in the environment win.
func LoadFrom(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		log.Info().Msgf("%s using env from : %s", logtag, path)
	} else {
		log.Info().Msgf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		HTTP:      newHTTP(v),
		Redis:     newRedis(v),
		Postgres:  newPostgres(v),
		Admission: newAdmission(v),
		Telemetry: newTelemetry(v),
		Storage:   strings.ToLower(v.GetString("storage")),
		Mode:      strings.ToUpper(v.GetString("mode")),
		LogLevel:  strings.ToLower(v.GetString("log_level")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Debug().Msgf("%s backend config : %+v", logtag, cfg.redacted())
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_host", "localhost")
	v.SetDefault("http_port", "8080")

	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_host", "redis")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "admin")
	v.SetDefault("db_password", "shared")
	v.SetDefault("db_name", "boardmate")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_open_conns", 32)

	v.SetDefault("admission_strategy", "pessimistic")
	v.SetDefault("admission_max_retry", 3)

	v.SetDefault("otel_endpoint", "")
	v.SetDefault("otel_service_name", "boardmate")

	v.SetDefault("storage", StorageMemory)
	v.SetDefault("mode", "RW")
	v.SetDefault("log_level", "info")
}

func newHTTP(v *viper.Viper) HTTPServer {
	return HTTPServer{
		Host: v.GetString("http_host"),
		Port: v.GetString("http_port"),
	}
}

func newRedis(v *viper.Viper) RedisCache {
	return RedisCache{
		Enabled:  v.GetBool("redis_enabled"),
		Host:     v.GetString("redis_host"),
		Port:     v.GetString("redis_port"),
		Password: v.GetString("redis_password"),
	}
}

func newPostgres(v *viper.Viper) Postgres {
	return Postgres{
		Driver:       v.GetString("db_driver"),
		Host:         v.GetString("db_host"),
		Port:         v.GetString("db_port"),
		User:         v.GetString("db_user"),
		Password:     v.GetString("db_password"),
		DBName:       v.GetString("db_name"),
		SSLMode:      v.GetString("db_sslmode"),
		MaxOpenConns: v.GetInt("db_max_open_conns"),
	}
}

func newAdmission(v *viper.Viper) Admission {
	return Admission{
		Strategy: strings.ToLower(v.GetString("admission_strategy")),
		MaxRetry: v.GetInt("admission_max_retry"),
	}
}

func newTelemetry(v *viper.Viper) Telemetry {
	return Telemetry{
		Endpoint:    v.GetString("otel_endpoint"),
		ServiceName: v.GetString("otel_service_name"),
	}
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("%s unknown STORAGE %q", logtag, c.Storage)
	}

	switch c.Postgres.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("%s unknown DB_DRIVER %q", logtag, c.Postgres.Driver)
	}

	if c.Admission.MaxRetry < 1 {
		return fmt.Errorf("%s ADMISSION_MAX_RETRY must be positive, got %d", logtag, c.Admission.MaxRetry)
	}
	return nil
}

func (c *Config) IsReadOnly() bool {
	return c.Mode == ModeReadOnly
}

func (c Config) redacted() Config {
	if c.Postgres.Password != "" {
		c.Postgres.Password = "***"
	}
	if c.Redis.Password != "" {
		c.Redis.Password = "***"
	}
	return c
}
