package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "ENVIRONMENT", "PORT", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"GEMINI_API_KEY", "GEMINI_BASE_URL", "LLM_MODEL", "LLM_PROVIDER", "LLM_TIMEOUT", "LLM_REASONING_EFFORT",
		"SENTRY_DSN", "LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY", "LANGFUSE_HOST",
		"LANGFUSE_ENABLED", "CLOUDWATCH_NAMESPACE", "AUTH_MODE", "JWT_SECRET",
		"RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS", "PUBLIC_DIR", "TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, AuthModeNone, cfg.AuthMode)
	assert.Equal(t, "low", cfg.ReasoningEffort)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "public", cfg.PublicDir)
	assert.Empty(t, cfg.TrustedProxies)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("LLM_MODEL", "gemini-2.5-flash")
	t.Setenv("LLM_TIMEOUT", "15")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RATE_LIMIT_RPM", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LANGFUSE_ENABLED", "true")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, 30, cfg.RateLimitRPM)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.LangfuseEnabled)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.1"}, cfg.TrustedProxies)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
model: gpt-4o
timeout: 30s
rate_limit_rpm: 12
cors_allowed_origins:
  - https://genres.example
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port, "env wins over file")
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 12, cfg.RateLimitRPM)
	assert.Equal(t, []string{"https://genres.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing explicit config file", map[string]string{"CONFIG_FILE": "/does/not/exist.yaml"}},
		{"unknown auth mode", map[string]string{"AUTH_MODE": "magic"}},
		{"jwt without secret", map[string]string{"AUTH_MODE": "jwt"}},
		{"bad timeout", map[string]string{"LLM_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"LLM_TIMEOUT": "0"}},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "anthropic"}},
		{"unknown reasoning effort", map[string]string{"LLM_REASONING_EFFORT": "extreme"}},
		{"bad rpm", map[string]string{"RATE_LIMIT_RPM": "lots"}},
		{"negative rpm", map[string]string{"RATE_LIMIT_RPM": "-1"}},
		{"bad trusted proxy", map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8,proxy.internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProviderNameIsCaseInsensitive(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "OpenAI")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "OpenAI", cfg.Provider)
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("45")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	d, err = parseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}
