package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultSandboxURL  = "https://gw.fbr.gov.pk/di_data/v1/di/postinvoicedata_sb"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// GatewayConfig controls how invoices reach the tax gateway.
type GatewayConfig struct {
	SandboxURL    string        `mapstructure:"sandboxURL"`
	ProductionURL string        `mapstructure:"productionURL"`
	ValidateURL   string        `mapstructure:"validateURL"`
	Token         string        `mapstructure:"token"`
	ValidateToken string        `mapstructure:"validateToken"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"maxAttempts"`
	RetryDelay    time.Duration `mapstructure:"retryDelay"`
	ClaimLease    time.Duration `mapstructure:"claimLease"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		SandboxURL:  DefaultSandboxURL,
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
	}
}

// SubmitURL returns the production endpoint only in production and only when configured.
func (g GatewayConfig) SubmitURL(production bool) string {
	if production && strings.TrimSpace(g.ProductionURL) != "" {
		return strings.TrimSpace(g.ProductionURL)
	}
	return strings.TrimSpace(g.SandboxURL)
}

// ValidationToken falls back to the submission token.
func (g GatewayConfig) ValidationToken() string {
	if token := strings.TrimSpace(g.ValidateToken); token != "" {
		return token
	}
	return strings.TrimSpace(g.Token)
}

// Lease is how long a submission claim stays live before another caller may take it over.
func (g GatewayConfig) Lease() time.Duration {
	if g.ClaimLease > 0 {
		return g.ClaimLease
	}
	attempts := g.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*(g.Timeout+g.RetryDelay) + time.Minute
}

type GatewayConfigHolder struct {
	current atomic.Value // holds GatewayConfig
}

// NewStaticGatewayConfigHolder wraps a fixed configuration.
func NewStaticGatewayConfigHolder(cfg GatewayConfig) *GatewayConfigHolder {
	holder := &GatewayConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewGatewayConfigHolder(log *zap.Logger) (*GatewayConfigHolder, error) {
	log = log.Named("config.gateway")
	v := viper.New()

	v.SetConfigName("gateway")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/taxgate/config") // Volume-mounted config
	v.AddConfigPath("/etc/taxgate")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("TAXGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGatewayConfig()
	v.SetDefault("gateway.sandboxURL", defaults.SandboxURL)
	v.SetDefault("gateway.productionURL", "")
	v.SetDefault("gateway.validateURL", "")
	v.SetDefault("gateway.token", "")
	v.SetDefault("gateway.validateToken", "")
	v.SetDefault("gateway.timeout", defaults.Timeout)
	v.SetDefault("gateway.maxAttempts", defaults.MaxAttempts)
	v.SetDefault("gateway.retryDelay", defaults.RetryDelay)
	v.SetDefault("gateway.claimLease", time.Duration(0))

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeGatewayConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticGatewayConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeGatewayConfig(v)
		if err != nil {
			log.Warn("gateway config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("gateway config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *GatewayConfigHolder) Get() GatewayConfig {
	return h.current.Load().(GatewayConfig)
}

func decodeGatewayConfig(v *viper.Viper) (GatewayConfig, error) {
	var cfg GatewayConfig
	if err := v.UnmarshalKey("gateway", &cfg); err != nil {
		return GatewayConfig{}, err
	}
	if err := validateGatewayConfig(cfg); err != nil {
		return GatewayConfig{}, err
	}
	return cfg, nil
}

func validateGatewayConfig(cfg GatewayConfig) error {
	if strings.TrimSpace(cfg.SandboxURL) == "" && strings.TrimSpace(cfg.ProductionURL) == "" {
		return errors.New("gateway.sandboxURL or gateway.productionURL is required")
	}
	if cfg.MaxAttempts < 1 {
		return errors.New("gateway.maxAttempts must be at least 1")
	}
	if cfg.Timeout <= 0 {
		return errors.New("gateway.timeout must be positive")
	}
	if cfg.RetryDelay < 0 {
		return errors.New("gateway.retryDelay cannot be negative")
	}
	return nil
}
