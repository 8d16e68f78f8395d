// AngelaMos | 2026
// env.go

package config

import (
	"maps"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// aliases are environment names that do not follow the SECTION_KEY form.
var aliases = map[string]string{
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"STRIPE_SECRET_KEY":           "billing.stripe_secret_key",
	"STRIPE_WEBHOOK_SECRET":       "billing.stripe_webhook_secret",
	"STRIPE_PRO_PRICE_MONTHLY":    "billing.pro_price_monthly",
	"STRIPE_PRO_PRICE_YEARLY":     "billing.pro_price_yearly",
	"FRONTEND_URL":                "billing.frontend_url",
}

// envName turns "rate_limit.requests" into "RATE_LIMIT_REQUESTS".
func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// displayName prefers the alias a key is usually set through.
func displayName(key string) string {
	for name, target := range aliases {
		if target == key {
			return name
		}
	}
	return envName(key)
}

// envProvider maps every known key to its environment name. Lists are read
// as comma separated values.
func envProvider(k *koanf.Koanf) koanf.Provider {
	known := make(map[string]string, len(aliases))
	for _, key := range k.Keys() {
		known[envName(key)] = key
	}
	maps.Copy(known, aliases)

	return env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		key, ok := known[name]
		if !ok {
			return "", nil
		}
		if _, isList := k.Get(key).([]any); isList {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
}
