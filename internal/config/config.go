package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OTLPEndpoint      string
	OTLPProtocol      string
	OtelSamplingRatio float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBLogLevel        string
	DBSlowQueryMs     int

	DefaultTenant TenantSeed

	RecoveryEnabled   bool
	RecoveryInterval  int
	RecoveryBatchSize int
}

// TenantSeed describes the tenant created on first boot.
type TenantSeed struct {
	ID           int64
	SellerNTN    string
	BusinessName string
	Province     string
	Address      string
	GatewayToken string
}

// Enabled reports whether enough seed data is present to create a tenant.
func (t TenantSeed) Enabled() bool {
	return strings.TrimSpace(t.SellerNTN) != "" && strings.TrimSpace(t.BusinessName) != ""
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "taxgate"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		OtelEnabled:       getenvBool("OTEL_ENABLED", true),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "taxgate"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "taxgate.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBLogLevel:        getenv("DATABASE_LOG_LEVEL", "warn"),
		DBSlowQueryMs:     getenvInt("DATABASE_SLOW_QUERY_MS", 200),
		DefaultTenant: TenantSeed{
			ID:           getenvInt64("DEFAULT_TENANT_ID", 0),
			SellerNTN:    strings.TrimSpace(getenv("DEFAULT_TENANT_NTN", "")),
			BusinessName: strings.TrimSpace(getenv("DEFAULT_TENANT_NAME", "")),
			Province:     strings.TrimSpace(getenv("DEFAULT_TENANT_PROVINCE", "")),
			Address:      strings.TrimSpace(getenv("DEFAULT_TENANT_ADDRESS", "")),
			GatewayToken: strings.TrimSpace(getenv("DEFAULT_TENANT_TOKEN", "")),
		},
		RecoveryEnabled:   getenvBool("RECOVERY_SWEEP_ENABLED", true),
		RecoveryInterval:  getenvInt("RECOVERY_SWEEP_INTERVAL", 60),
		RecoveryBatchSize: getenvInt("RECOVERY_SWEEP_BATCH_SIZE", 50),
	}

	return cfg
}

const EnvironmentProduction = "production"

// IsProduction reports whether the service targets the live gateway.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
