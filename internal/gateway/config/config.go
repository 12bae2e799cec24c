package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port   string       `yaml:"port"`
	Env    string       `yaml:"env"`
	LLM    LLMConfig    `yaml:"llm"`
	Limits LimitsConfig `yaml:"limits"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type LLMConfig struct {
	// Provider is "gemini" or "fake".
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryBase   time.Duration `yaml:"retry_base"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	// FakeReply is returned verbatim by the fake provider.
	FakeReply   string        `yaml:"fake_reply"`
}

// LimitsConfig bounds a single fix request. Zero disables a ceiling.
type LimitsConfig struct {
	MaxFiles        int   `yaml:"max_files"`
	MaxTotalBytes   int   `yaml:"max_total_bytes"`
	MaxPromptTokens int   `yaml:"max_prompt_tokens"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

type ServerConfig struct {
	// ClientRPS throttles requests per remote IP; zero disables it.
	ClientRPS       float64 `yaml:"client_rps"`
	ClientBurst     int     `yaml:"client_burst"`
	ClientCacheSize int     `yaml:"client_cache_size"`
	// TrustForwarded keys the client limiter on X-Forwarded-For. Only set it
	// behind a proxy that overwrites the header.
	TrustForwarded  bool    `yaml:"trust_forwarded"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"
)

func Default() Config {
	return Config{
		Port: ":8080",
		Env:  EnvProduction,
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			Timeout:     2 * time.Minute,
			MaxAttempts: 3,
			RetryBase:   500 * time.Millisecond,
			Burst:       1,
		},
		Limits: LimitsConfig{
			MaxFiles:        500,
			MaxTotalBytes:   5 << 20,
			MaxPromptTokens: 1_000_000,
			MaxUploadBytes:  16 << 20,
		},
		Server: ServerConfig{
			ClientRPS:       1,
			ClientBurst:     5,
			ClientCacheSize: 4096,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by REPOFIX_CONFIG, and environment variables, in increasing precedence.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("REPOFIX_CONFIG")); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if env := strings.TrimSpace(os.Getenv("APP_ENV")); env != "" {
		cfg.Env = env
	}
	if strings.EqualFold(cfg.Env, EnvLocal) {
		applyLocalDefaults(&cfg)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Port = normalizePort(v)
	}
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.APIKey, "GEMINI_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")
	setDuration(&c.LLM.Timeout, "LLM_TIMEOUT")
	setInt(&c.LLM.MaxAttempts, "LLM_MAX_ATTEMPTS")
	setDuration(&c.LLM.RetryBase, "LLM_RETRY_BASE")
	setFloat(&c.LLM.RPS, "LLM_RPS")
	setInt(&c.LLM.Burst, "LLM_BURST")

	setInt(&c.Limits.MaxFiles, "MAX_FILES")
	setInt(&c.Limits.MaxTotalBytes, "MAX_TOTAL_BYTES")
	setInt(&c.Limits.MaxPromptTokens, "MAX_PROMPT_TOKENS")
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Limits.MaxUploadBytes = n
		}
	}

	setFloat(&c.Server.ClientRPS, "CLIENT_RPS")
	setInt(&c.Server.ClientBurst, "CLIENT_BURST")
	setBool(&c.Server.TrustForwarded, "TRUST_FORWARDED")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
}

func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderGemini:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY environment variable not set"))
		}
	case ProviderFake:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("llm max attempts must be >= 1, got %d", c.LLM.MaxAttempts))
	}
	if c.Limits.MaxFiles < 0 || c.Limits.MaxTotalBytes < 0 || c.Limits.MaxPromptTokens < 0 || c.Limits.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	return errors.Join(errs...)
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
