package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP      HTTPConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Engine    EngineConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
	Seed      SeedConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace int
}

// Backend selects the persistence gateway implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPebble   Backend = "pebble"
	BackendPostgres Backend = "postgres"
)

type StorageConfig struct {
	Backend   Backend
	PebbleDir string
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type EngineConfig struct {
	SweepInterval  time.Duration
	ReservationTTL time.Duration
	RentalDays     int
}

type TelemetryConfig struct {
	LogLevel       string
	OTelEndpoint   string
	OTelInsecure   bool
	EnableTracing  bool
	EnableMetrics  bool
	SampleRate     float64
	MetricInterval time.Duration
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

type SeedConfig struct {
	File string
}

const (
	defaultHTTPPort       = 8080
	defaultShutdownGrace  = 15
	defaultBackend        = BackendMemory
	defaultPebbleDir      = "data/libris"
	defaultMigrationsPath = "migrations"
	defaultAutoMigrate    = true
	defaultTopicPrefix    = "libris."
	defaultSweepInterval  = time.Minute
	defaultReservationTTL = 24 * time.Hour
	defaultRentalDays     = 7
	defaultServiceName    = "libris-api"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultOTelSampleRate = 1.0
	defaultMetricInterval = 30 * time.Second
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	storageCfg, err := loadStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}

	engineCfg, err := loadEngineConfig()
	if err != nil {
		return nil, fmt.Errorf("loading engine config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:      httpCfg,
		Storage:   storageCfg,
		Database:  loadDatabaseConfig(),
		Kafka:     loadKafkaConfig(),
		Engine:    engineCfg,
		Telemetry: telCfg,
		Service:   loadServiceConfig(),
		Seed:      SeedConfig{File: os.Getenv("SEED_FILE")},
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("API_HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}

	shutdownGrace, err := getIntEnv("API_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Port:          port,
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadStorageConfig() (StorageConfig, error) {
	backend := Backend(strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", string(defaultBackend))))
	switch backend {
	case BackendMemory, BackendPebble, BackendPostgres:
	default:
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_BACKEND %q: want memory, pebble or postgres", backend)
	}

	return StorageConfig{
		Backend:   backend,
		PebbleDir: getEnvOrDefault("PEBBLE_DIR", defaultPebbleDir),
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}
}

func loadKafkaConfig() KafkaConfig {
	var brokers []string
	if value, ok := os.LookupEnv("KAFKA_BROKERS"); ok && value != "" {
		for _, b := range strings.Split(value, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return KafkaConfig{
		Brokers:     brokers,
		TopicPrefix: getEnvOrDefault("KAFKA_TOPIC_PREFIX", defaultTopicPrefix),
	}
}

func loadEngineConfig() (EngineConfig, error) {
	sweepInterval, err := getDurationEnv("SWEEP_INTERVAL", defaultSweepInterval)
	if err != nil {
		return EngineConfig{}, err
	}

	ttl, err := getDurationEnv("RESERVATION_TTL", defaultReservationTTL)
	if err != nil {
		return EngineConfig{}, err
	}

	rentalDays, err := getIntEnv("RENTAL_DAYS", defaultRentalDays)
	if err != nil {
		return EngineConfig{}, err
	}
	if rentalDays <= 0 {
		return EngineConfig{}, fmt.Errorf("invalid RENTAL_DAYS %d: must be positive", rentalDays)
	}

	return EngineConfig{
		SweepInterval:  sweepInterval,
		ReservationTTL: ttl,
		RentalDays:     rentalDays,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	interval, err := getDurationEnv("OTEL_METRIC_INTERVAL", defaultMetricInterval)
	if err != nil {
		return TelemetryConfig{}, err
	}

	return TelemetryConfig{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:   getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelInsecure:   getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", true),
		EnableTracing:  getBoolEnv("OTEL_ENABLE_TRACING", false),
		EnableMetrics:  getBoolEnv("OTEL_ENABLE_METRICS", false),
		SampleRate:     sampleRate,
		MetricInterval: interval,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "libris")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "10")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "1")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return parsed, nil
}
