// AngelaMos | 2026
// config.go

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Billing   BillingConfig   `koanf:"billing"`
	Jarvis    JarvisConfig    `koanf:"jarvis"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"required"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"                validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

type RedisConfig struct {
	URL          string `koanf:"url"            validate:"required"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"     validate:"required"`
	PublicKeyPath      string        `koanf:"public_key_path"      validate:"required"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"  validate:"gt=0"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire" validate:"gtfield=AccessTokenExpire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"gt=0"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"     validate:"required_if=Enabled true"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"  validate:"gte=0,lte=1"`
}

// BillingConfig carries the Stripe credentials and the price ids that map
// checkout sessions onto subscription plans.
type BillingConfig struct {
	StripeSecretKey     string        `koanf:"stripe_secret_key"`
	StripeWebhookSecret string        `koanf:"stripe_webhook_secret" validate:"required_with=StripeSecretKey"`
	ProPriceMonthly     string        `koanf:"pro_price_monthly"`
	ProPriceYearly      string        `koanf:"pro_price_yearly"`
	FrontendURL         string        `koanf:"frontend_url"          validate:"omitempty,http_url"`
	PlanCacheTTL        time.Duration `koanf:"plan_cache_ttl"`
}

func (b *BillingConfig) StripeEnabled() bool {
	return b.StripeSecretKey != ""
}

type JarvisConfig struct {
	Enabled          bool          `koanf:"enabled"`
	APIURL           string        `koanf:"api_url"            validate:"required_if=Enabled true,omitempty,http_url"`
	APIKey           string        `koanf:"api_key"            validate:"required_if=Enabled true"`
	Model            string        `koanf:"model"`
	Timeout          time.Duration `koanf:"timeout"`
	MaxContextTokens int           `koanf:"max_context_tokens" validate:"gt=0"`
	BreakerFailures  uint32        `koanf:"breaker_failures"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

type SchedulerConfig struct {
	Enabled          bool   `koanf:"enabled"`
	TokenCleanupSpec string `koanf:"token_cleanup_spec" validate:"required_if=Enabled true"`
	UsageCleanupSpec string `koanf:"usage_cleanup_spec" validate:"required_if=Enabled true"`
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

//go:embed defaults.yaml
var defaultsYAML []byte

// embedded serves the built in defaults to koanf.
type embedded []byte

func (e embedded) ReadBytes() ([]byte, error) { return e, nil }

func (e embedded) Read() (map[string]any, error) {
	return nil, errors.New("embedded provider does not support Read")
}

// Load layers the built in defaults, the YAML file at path and the process
// environment, in that order. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(embedded(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(envProvider(k), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// checkPolicy holds the rules that span sections.
func checkPolicy(c *Config) error {
	if c.CORS.AllowCredentials && slices.Contains(c.CORS.AllowedOrigins, "*") {
		return errors.New("CORS wildcard '*' cannot be used with allow_credentials")
	}
	if c.IsProduction() && c.Otel.Enabled && c.Otel.Insecure {
		return errors.New("OTEL_INSECURE must be false in production")
	}
	return nil
}
