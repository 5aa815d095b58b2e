package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally against the in-memory store.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StoreDriver   string
	PGDSN         string
	MongoURI      string
	MongoDB       string
	RunMigrations bool

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string
	JWTTTL    time.Duration

	StripeAPIKey    string
	PaymentCurrency string

	OSRMEndpoint    string
	DefaultSpeedKmh float64

	CORSOrigins []string

	BootstrapEmail    string
	BootstrapPassword string

	LogLevel string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		StoreDriver:     DriverMemory,
		MongoDB:         "transfers",
		CacheTTL:        5 * time.Minute,
		KafkaTopic:      "transfer-notifications",
		JWTTTL:          24 * time.Hour,
		PaymentCurrency: "usd",
		DefaultSpeedKmh: 40,
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.ToLower(strings.TrimSpace(v))
	}
	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.MongoURI = strings.TrimSpace(os.Getenv("MONGO_URI"))
	setStringFromEnv(&cfg.MongoDB, "MONGO_DB")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setDurationFromEnv(&cfg.CacheTTL, "CACHE_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	setDurationFromEnv(&cfg.JWTTTL, "JWT_TTL", &errs)

	cfg.StripeAPIKey = strings.TrimSpace(os.Getenv("STRIPE_API_KEY"))
	if v := os.Getenv("PAYMENT_CURRENCY"); v != "" {
		cfg.PaymentCurrency = strings.ToLower(strings.TrimSpace(v))
	}

	cfg.OSRMEndpoint = strings.TrimSpace(os.Getenv("OSRM_ENDPOINT"))
	setFloatFromEnv(&cfg.DefaultSpeedKmh, "DEFAULT_SPEED_KMH", &errs)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitAndTrim(origins)
	}

	cfg.BootstrapEmail = strings.TrimSpace(os.Getenv("BOOTSTRAP_SUPERADMIN_EMAIL"))
	cfg.BootstrapPassword = os.Getenv("BOOTSTRAP_SUPERADMIN_PASSWORD")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.PGDSN == "" {
			errs = append(errs, fmt.Errorf("PG_DSN is required when STORE_DRIVER=postgres"))
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, fmt.Errorf("MONGO_URI is required when STORE_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}
	if cfg.JWTSecret == "" && cfg.StoreDriver != DriverMemory {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	}
	if cfg.DefaultSpeedKmh <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_SPEED_KMH must be > 0"))
	}
	if (cfg.BootstrapEmail == "") != (cfg.BootstrapPassword == "") {
		errs = append(errs, fmt.Errorf("BOOTSTRAP_SUPERADMIN_EMAIL and BOOTSTRAP_SUPERADMIN_PASSWORD must be set together"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig drives the notification relay.
type ConsumerConfig struct {
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string
	RedisAddr     string
	RedisPassword string
	MaxRetries    int
	RetryBackoff  time.Duration
	LogLevel      string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{
		KafkaTopic:   "transfer-notifications",
		KafkaGroupID: "notification-relay",
		RedisAddr:    "localhost:6379",
		MaxRetries:   5,
		RetryBackoff: 100 * time.Millisecond,
		LogLevel:     "info",
	}
	var errs []error

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroupID, "KAFKA_GROUP_ID")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setIntFromEnv(&cfg.MaxRetries, "RELAY_MAX_RETRIES", &errs)
	setDurationFromEnv(&cfg.RetryBackoff, "RELAY_RETRY_BACKOFF", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS is required"))
	}
	if cfg.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_MAX_RETRIES must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// ClientConfig is read by transferctl. Flags override these values.
type ClientConfig struct {
	APIBase  string
	Token    string
	CartPath string
}

func LoadClientConfig() ClientConfig {
	cfg := ClientConfig{APIBase: "http://localhost:8080"}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.CartPath = home + string(os.PathSeparator) + ".transferctl" + string(os.PathSeparator) + "cart.json"
	} else {
		cfg.CartPath = "cart.json"
	}
	setStringFromEnv(&cfg.APIBase, "TRANSFER_API")
	setStringFromEnv(&cfg.Token, "TRANSFER_TOKEN")
	setStringFromEnv(&cfg.CartPath, "TRANSFER_CART")
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return cfg
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
