// Package config provides environment-based configuration for the DevDox dashboard.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dashboard server and CLI.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Web      WebConfig      `mapstructure:"web"`
	Identity IdentityConfig `mapstructure:"identity"`
	Log      LogConfig      `mapstructure:"log"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	CLI      CLIConfig      `mapstructure:"cli"`
}

// APIConfig describes the DevDox backend.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageLimit int           `mapstructure:"page_limit"`
}

// WebConfig holds dashboard server settings.
type WebConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SignInURL       string        `mapstructure:"sign_in_url"`
	SessionCookie   string        `mapstructure:"session_cookie"`
	// MCPURL is the agent endpoint shown in the IDE setup guide.
	MCPURL string `mapstructure:"mcp_url"`
}

// IdentityConfig configures verification of sessions issued by the hosted identity provider.
// Either JWTSecret (HS256) or PublicKeyPEM (RS256) must be set for the web server.
type IdentityConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	PublicKeyPEM string `mapstructure:"public_key_pem"`
	Issuer       string `mapstructure:"issuer"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotifyConfig controls dashboard notifications.
type NotifyConfig struct {
	Duration    time.Duration `mapstructure:"duration"`
	Limit       int           `mapstructure:"limit"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// CLIConfig holds devdoxctl settings.
type CLIConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
}

// DefaultMCPURL is the hosted DevDox agent endpoint.
const DefaultMCPURL = "https://agent.devdox.ai/mcp"

// EnvPrefix is prepended to every environment variable, e.g. DEVDOX_API_BASE_URL.
const EnvPrefix = "DEVDOX"

// New returns a viper instance with defaults and environment binding applied.
// An optional .env file in the working directory is merged when present.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	mergeDotEnv(v, ".env")

	return v
}

// mergeDotEnv layers DEVDOX_* entries from a dotenv file underneath the process
// environment. A missing file is ignored.
func mergeDotEnv(v *viper.Viper, path string) {
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return
	}

	for _, key := range v.AllKeys() {
		envKey := strings.ToLower(EnvPrefix + "_" + strings.ReplaceAll(key, ".", "_"))
		if env.IsSet(envKey) {
			v.SetDefault(key, env.Get(envKey))
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.page_limit", 20)

	v.SetDefault("web.addr", ":3000")
	v.SetDefault("web.shutdown_timeout", 30*time.Second)
	v.SetDefault("web.sign_in_url", "/sign-in")
	v.SetDefault("web.session_cookie", "__session")
	v.SetDefault("web.mcp_url", DefaultMCPURL)

	v.SetDefault("identity.jwt_secret", "")
	v.SetDefault("identity.public_key_pem", "")
	v.SetDefault("identity.issuer", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("notify.duration", 5*time.Second)
	v.SetDefault("notify.limit", 50)
	v.SetDefault("notify.idle_timeout", 24*time.Hour)

	v.SetDefault("cli.credentials_path", "")
}

// FromViper unmarshals a Config out of v without validating it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := FromViper(New())
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if c.Identity.JWTSecret == "" && c.Identity.PublicKeyPEM == "" {
		return errors.New("DEVDOX_IDENTITY_JWT_SECRET or DEVDOX_IDENTITY_PUBLIC_KEY_PEM is required")
	}
	if c.Identity.JWTSecret != "" && len(c.Identity.JWTSecret) < 32 {
		return errors.New("DEVDOX_IDENTITY_JWT_SECRET must be at least 32 characters")
	}
	if c.Web.SessionCookie == "" {
		return errors.New("DEVDOX_WEB_SESSION_COOKIE must not be empty")
	}
	return nil
}

// Validate checks the backend settings alone. The CLI needs nothing else.
func (a APIConfig) Validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("DEVDOX_API_BASE_URL must be an absolute URL, got %q", a.BaseURL)
	}
	if a.PageLimit <= 0 {
		return fmt.Errorf("DEVDOX_API_PAGE_LIMIT must be positive, got %d", a.PageLimit)
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	v := New()
	if v.GetString("identity.jwt_secret") == "" && v.GetString("identity.public_key_pem") == "" {
		v.Set("identity.jwt_secret", "development-secret-key-min-32-chars")
	}
	cfg, err := FromViper(v)
	if err != nil {
		return &Config{
			API:      APIConfig{BaseURL: "http://localhost:8000", Timeout: 30 * time.Second, PageLimit: 20},
			Web:      WebConfig{Addr: ":3000", ShutdownTimeout: 30 * time.Second, SignInURL: "/sign-in", SessionCookie: "__session", MCPURL: DefaultMCPURL},
			Identity: IdentityConfig{JWTSecret: "development-secret-key-min-32-chars"},
			Log:      LogConfig{Level: "info", Format: "json"},
			Notify:   NotifyConfig{Duration: 5 * time.Second, Limit: 50, IdleTimeout: 24 * time.Hour},
		}
	}
	return cfg
}
