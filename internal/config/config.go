// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Defaults applied when the matching variable is unset or empty.
const (
	DefaultAPIBaseURL     = "https://rest.gohighlevel.com/v1"
	DefaultWebhookBaseURL = "https://services.leadconnectorhq.com/hooks"
	DefaultAllowedOrigins = "*"
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8000
	DefaultRequestTimeout = 30 * time.Second
	DefaultLogLevel       = "info"
)

// Config holds every setting the server reads at startup. It is never mutated after Load returns.
type Config struct {
	APIBaseURL     string        `mapstructure:"ghl_api_base_url"`
	APIKey         string        `mapstructure:"ghl_api_key"`
	SubAccountID   string        `mapstructure:"ghl_sub_account_id"`
	WebhookBaseURL string        `mapstructure:"ghl_webhook_base_url"`
	RequestTimeout time.Duration `mapstructure:"ghl_request_timeout"`

	AllowedOrigins string `mapstructure:"allowed_origins"`
	Host           string `mapstructure:"mcp_server_host"`
	Port           int    `mapstructure:"mcp_server_port"`
	MCPToken       string `mapstructure:"mcp_token"`
	LogLevel       string `mapstructure:"log_level"`
	TLSCertFile    string `mapstructure:"tls_cert_file"`
	TLSKeyFile     string `mapstructure:"tls_key_file"`

	// Carried for deployment tooling only; nothing in request handling reads them.
	AnthropicAPIKey    string `mapstructure:"anthropic_api_key"`
	NgrokAuthToken     string `mapstructure:"ngrok_authtoken"`
	AzureAppServiceURL string `mapstructure:"azure_app_service_url"`
}

var envMappings = map[string]string{
	"ghl_api_base_url":      "GHL_API_BASE_URL",
	"ghl_api_key":           "GHL_API_KEY",
	"ghl_sub_account_id":    "GHL_SUB_ACCOUNT_ID",
	"ghl_webhook_base_url":  "GHL_WEBHOOK_BASE_URL",
	"ghl_request_timeout":   "GHL_REQUEST_TIMEOUT",
	"allowed_origins":       "ALLOWED_ORIGINS",
	"mcp_server_host":       "MCP_SERVER_HOST",
	"mcp_server_port":       "MCP_SERVER_PORT",
	"mcp_token":             "MCP_TOKEN",
	"log_level":             "LOG_LEVEL",
	"tls_cert_file":         "TLS_CERT_FILE",
	"tls_key_file":          "TLS_KEY_FILE",
	"anthropic_api_key":     "ANTHROPIC_API_KEY",
	"ngrok_authtoken":       "NGROK_AUTHTOKEN",
	"azure_app_service_url": "AZURE_APP_SERVICE_URL",
}

// Error is returned when the configuration is incomplete or invalid. It is only ever a startup condition.
type Error struct {
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind names the error category reported to callers.
func (e *Error) Kind() string { return "ConfigError" }

// Load builds a Config from defaults, an optional dotenv file and the process environment, in increasing
// order of precedence. envFile may be empty or point to a file that does not exist.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envVar := range envMappings {
		if err := v.BindEnv(key, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s", envVar)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, &Error{Err: fmt.Errorf("read %s: %w", envFile, err)}
			}
			log.Debug().Str("file", envFile).Msg("Loaded env file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("decode config: %w", err)}
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.WebhookBaseURL = strings.TrimRight(cfg.WebhookBaseURL, "/")

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ghl_api_base_url", DefaultAPIBaseURL)
	v.SetDefault("ghl_webhook_base_url", DefaultWebhookBaseURL)
	v.SetDefault("ghl_request_timeout", DefaultRequestTimeout)
	v.SetDefault("allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("mcp_server_host", DefaultHost)
	v.SetDefault("mcp_server_port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)
}

func validate(cfg *Config) error {
	var missing []string
	if strings.TrimSpace(cfg.APIKey) == "" {
		missing = append(missing, "GHL_API_KEY")
	}
	if strings.TrimSpace(cfg.SubAccountID) == "" {
		missing = append(missing, "GHL_SUB_ACCOUNT_ID")
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return &Error{Err: fmt.Errorf("MCP_SERVER_PORT out of range: %d", cfg.Port)}
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return &Error{Err: errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")}
	}
	if cfg.RequestTimeout <= 0 {
		return &Error{Err: errors.New("GHL_REQUEST_TIMEOUT must be positive")}
	}
	return nil
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLSEnabled reports whether the server should terminate TLS itself.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Origins splits AllowedOrigins into the list handed to the CORS middleware.
func (c *Config) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" || strings.TrimSpace(c.AllowedOrigins) == "*" {
		return []string{"*"}
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
