package bootstrap

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration makes yaml accept values like "25ms" and "5m"; yaml.v3 does
// not decode duration strings into time.Duration on its own.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "bootstrap: invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full configuration tree shared by both services. Each
// service reads the sections it cares about and ignores the rest.
type Config struct {
	App struct {
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`

		MySQL struct {
			DSN             string   `yaml:"dsn"`
			MaxOpenConns    int      `yaml:"max_open_conns"`
			MaxIdleConns    int      `yaml:"max_idle_conns"`
			ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
		} `yaml:"mysql"`

		Redis struct {
			Enabled  bool     `yaml:"enabled"`
			Addr     string   `yaml:"addr"`
			Password string   `yaml:"password"`
			CacheTTL Duration `yaml:"cache_ttl"`
		} `yaml:"redis"`

		Kafka struct {
			Enabled     bool     `yaml:"enabled"`
			Brokers     []string `yaml:"brokers"`
			OrdersTopic string   `yaml:"orders_topic"`
		} `yaml:"kafka"`
	} `yaml:"infra"`

	// Storage selects the repository implementation: "memory" or "mysql".
	Storage string `yaml:"storage"`

	Inventory struct {
		BaseURL        string   `yaml:"base_url"`
		RequestTimeout Duration `yaml:"request_timeout"`
	} `yaml:"inventory"`

	Checkout struct {
		MaxReserveAttempts int      `yaml:"max_reserve_attempts"`
		RetryBackoffBase   Duration `yaml:"retry_backoff_base"`
		ReleaseRetries     int      `yaml:"release_retries"`
	} `yaml:"checkout"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// LoadConfig reads the yaml config file and applies environment overrides.
// Missing file is not fatal: defaults plus env vars are enough for local
// runs and tests.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "bootstrap: parse config %s", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "bootstrap: read config %s", path)
	}

	applyEnvOverrides(cfg)
	currentConfig = *cfg
	return cfg, nil
}

// GetCurrentConfig returns the last loaded configuration, loading defaults
// on first use when no explicit LoadConfig happened (tests, tooling).
func GetCurrentConfig() *Config {
	configOnce.Do(func() {
		if currentConfig.Storage == "" {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			currentConfig = *cfg
		}
	})
	return &currentConfig
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.LogLevel = "info"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.MySQL.MaxOpenConns = 25
	cfg.Infra.MySQL.MaxIdleConns = 5
	cfg.Infra.MySQL.ConnMaxLifetime = Duration(5 * time.Minute)
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Redis.CacheTTL = Duration(30 * time.Second)
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.OrdersTopic = "order-events"
	cfg.Storage = "memory"
	cfg.Inventory.BaseURL = "http://localhost:8082"
	cfg.Inventory.RequestTimeout = Duration(2 * time.Second)
	cfg.Checkout.MaxReserveAttempts = 3
	cfg.Checkout.RetryBackoffBase = Duration(25 * time.Millisecond)
	cfg.Checkout.ReleaseRetries = 3
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	cfg.App.LogLevel = GetEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.Infra.Jaeger.Endpoint = GetEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.MySQL.DSN = GetEnv("MYSQL_DSN", cfg.Infra.MySQL.DSN)
	cfg.Infra.Redis.Addr = GetEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Storage = GetEnv("STORAGE", cfg.Storage)
	cfg.Inventory.BaseURL = GetEnv("INVENTORY_SERVICE_URL", cfg.Inventory.BaseURL)
	if v, ok := os.LookupEnv("REDIS_CACHE_ENABLED"); ok {
		cfg.Infra.Redis.Enabled, _ = strconv.ParseBool(v)
	}
	if v, ok := os.LookupEnv("KAFKA_ENABLED"); ok {
		cfg.Infra.Kafka.Enabled, _ = strconv.ParseBool(v)
	}
}

// GetEnv reads an environment variable with a fallback.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
