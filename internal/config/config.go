package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
)

// Auth modes
const (
	AuthModeNone    = "none"    // No auth (self-hosted, local dev)
	AuthModeGateway = "gateway" // Trust X-User-* headers from an upstream gateway
	AuthModeJWT     = "jwt"     // HS256 bearer tokens signed with JWT_SECRET
)

const defaultConfigFile = "config.yaml"

// Config holds the application configuration.
// Nothing is persisted, so there is no database section.
type Config struct {
	// Environment
	Environment string `yaml:"environment"`
	Port        string `yaml:"port"`

	// LLM
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GeminiBaseURL string        `yaml:"gemini_base_url"`
	Model         string        `yaml:"model"`
	Provider      string        `yaml:"provider"` // empty means derive from model
	Timeout       time.Duration `yaml:"timeout"`

	// ReasoningEffort is sent to reasoning models (gpt-5, o-series) only
	ReasoningEffort string `yaml:"reasoning_effort"`

	// Observability
	SentryDSN           string `yaml:"sentry_dsn"`
	LangfusePublicKey   string `yaml:"langfuse_public_key"`
	LangfuseSecretKey   string `yaml:"langfuse_secret_key"`
	LangfuseHost        string `yaml:"langfuse_host"`
	LangfuseEnabled     bool   `yaml:"langfuse_enabled"`
	CloudWatchNamespace string `yaml:"cloudwatch_namespace"`

	// HTTP
	AuthMode           string   `yaml:"auth_mode"`
	JWTSecret          string   `yaml:"jwt_secret"`
	RateLimitRPM       int      `yaml:"rate_limit_rpm"` // 0 disables rate limiting
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	PublicDir          string   `yaml:"public_dir"`

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the peer address is the client.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Environment:        "development",
		Port:               "3000",
		Model:              "gpt-4o-mini",
		Timeout:            60 * time.Second,
		ReasoningEffort:    "low",
		LangfuseHost:       "https://cloud.langfuse.com",
		AuthMode:           AuthModeNone,
		RateLimitRPM:       0,
		RateLimitBurst:     5,
		CORSAllowedOrigins: []string{"*"},
		PublicDir:          "public",
	}
}

// Load builds the configuration from defaults, an optional YAML file
// (CONFIG_FILE or ./config.yaml) and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	path := getEnv("CONFIG_FILE", "")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Port = getEnv("PORT", c.Port)

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.Model = getEnv("LLM_MODEL", c.Model)
	c.Provider = getEnv("LLM_PROVIDER", c.Provider)
	c.ReasoningEffort = getEnv("LLM_REASONING_EFFORT", c.ReasoningEffort)

	if v := getEnv("LLM_TIMEOUT", ""); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("LLM_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}

	c.SentryDSN = getEnv("SENTRY_DSN", c.SentryDSN)
	c.LangfusePublicKey = getEnv("LANGFUSE_PUBLIC_KEY", c.LangfusePublicKey)
	c.LangfuseSecretKey = getEnv("LANGFUSE_SECRET_KEY", c.LangfuseSecretKey)
	c.LangfuseHost = getEnv("LANGFUSE_HOST", c.LangfuseHost)
	if v := getEnv("LANGFUSE_ENABLED", ""); v != "" {
		c.LangfuseEnabled = v == "true"
	}
	c.CloudWatchNamespace = getEnv("CLOUDWATCH_NAMESPACE", c.CloudWatchNamespace)

	c.AuthMode = getEnv("AUTH_MODE", c.AuthMode)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)

	var err error
	if c.RateLimitRPM, err = getEnvInt("RATE_LIMIT_RPM", c.RateLimitRPM); err != nil {
		return err
	}
	if c.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst); err != nil {
		return err
	}

	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	c.PublicDir = getEnv("PUBLIC_DIR", c.PublicDir)
	if v := getEnv("TRUSTED_PROXIES", ""); v != "" {
		c.TrustedProxies = splitList(v)
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeNone, AuthModeGateway:
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return errors.New("config: AUTH_MODE=jwt requires JWT_SECRET")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_MODE %q", c.AuthMode)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("config: LLM_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.Model == "" {
		return errors.New("config: LLM_MODEL must not be empty")
	}
	if c.Provider != "" && !llm.IsKnownProvider(c.Provider) {
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.Provider)
	}
	switch c.ReasoningEffort {
	case "", "minimal", "low", "medium", "high":
	default:
		return fmt.Errorf("config: unknown LLM_REASONING_EFFORT %q", c.ReasoningEffort)
	}
	if c.RateLimitRPM < 0 || c.RateLimitBurst < 0 {
		return errors.New("config: rate limit values must not be negative")
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
			}
		}
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// parseDuration accepts Go durations ("45s") and bare seconds ("45")
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
