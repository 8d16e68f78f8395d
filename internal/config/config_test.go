// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/taskispace
redis:
  url: redis://localhost:6379/0
billing:
  pro_price_monthly: price_123
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "TaskiSpace API", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Billing.PlanCacheTTL)
	assert.Equal(t, "price_123", cfg.Billing.ProPriceMonthly)
	assert.Equal(t, 4000, cfg.Jarvis.MaxContextTokens)
	assert.False(t, cfg.Billing.StripeEnabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/taskispace
redis:
  url: redis://localhost:6379/0
`)

	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "staging")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	path := writeConfig(t, `
redis:
  url: redis://localhost:6379/0
`)
	t.Setenv("DATABASE_URL", "")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_StripeRequiresWebhookSecret(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/taskispace
redis:
  url: redis://localhost:6379/0
billing:
  stripe_secret_key: sk_test_123
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
}

func TestLoad_JarvisRequiresAPIKey(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/taskispace
redis:
  url: redis://localhost:6379/0
jarvis:
  enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JARVIS_API_KEY")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/taskispace")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpire)
}

func TestLoad_EnvListsAndDerivedNames(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/taskispace
redis:
  url: redis://localhost:6379/0
`)

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATE_LIMIT_REQUESTS", "250")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 250, cfg.RateLimit.Requests)
	assert.Equal(t, "collector:4317", cfg.Otel.Endpoint)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"log:\n  level: loud", "LOG_LEVEL"},
		{"cors:\n  allowed_origins: [\"*\"]", "CORS wildcard"},
		{"jwt:\n  refresh_token_expire: 1m", "JWT_REFRESH_TOKEN_EXPIRE"},
		{"app:\n  environment: production\notel:\n  enabled: true\n  endpoint: c:4317", "OTEL_INSECURE"},
	}
	for _, tc := range cases {
		path := writeConfig(t, `
database:
  url: postgres://localhost/taskispace
redis:
  url: redis://localhost:6379/0
`+tc.body)

		_, err := Load(path)
		require.Error(t, err, tc.body)
		assert.Contains(t, err.Error(), tc.want, tc.body)
	}
}
