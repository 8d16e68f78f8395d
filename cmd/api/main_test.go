// AngelaMos | 2026
// main_test.go

package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskispace/api/internal/config"
)

func TestKeysGenerate_WithoutConfig(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"keys", "generate", "--private", priv, "--public", pub,
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, priv)
	assert.FileExists(t, pub)
	assert.Contains(t, out.String(), "wrote")

	data, err := os.ReadFile(pub)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-----BEGIN")
}

func TestChainAuth_RunsLimiterAfterAuthentication(t *testing.T) {
	var order []string
	step := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := chainAuth(step("auth"), step("limit"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"auth", "limit", "handler"}, order)
}

func TestSetupLogger_Levels(t *testing.T) {
	logger := setupLogger(config.LogConfig{Level: "warn", Format: "json"})
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelError))
}
