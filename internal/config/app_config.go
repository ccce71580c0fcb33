package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/shaharia-lab/ntfy-go/dispatcher"
	"github.com/shaharia-lab/ntfy-go/internal/build"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// ServerURL is the ntfy server messages are published to.
	ServerURL string `envconfig:"NTFY_URL" default:"https://ntfy.sh"`

	// Username and Password enable basic auth. Ignored when Token is set.
	Username string `envconfig:"NTFY_USERNAME"`
	Password string `envconfig:"NTFY_PASSWORD"`

	// Token is an ntfy access token (tk_...). Takes precedence over Username/Password.
	Token string `envconfig:"NTFY_TOKEN"`

	// Proxy routes all outbound traffic, e.g. socks5h://127.0.0.1:9050.
	Proxy string `envconfig:"NTFY_PROXY"`

	// Timeout bounds each publish request made by this tool. Zero disables it.
	Timeout time.Duration `envconfig:"NTFY_TIMEOUT" default:"30s"`

	// DataDir is the root data directory. Defaults to ~/.ntfy-go.
	DataDir string `envconfig:"NTFY_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Port is the relay HTTP server port.
	Port int `envconfig:"PORT" default:"8085"`

	// SchedulesFile overrides the location of the scheduled publish definitions.
	SchedulesFile string `envconfig:"NTFY_SCHEDULES_FILE"`

	// CORSOrigins is a comma separated list of origins allowed to call the relay API.
	CORSOrigins string `envconfig:"NTFY_CORS_ORIGINS"`

	// OTLPEndpoint enables OTLP export of traces, metrics and logs.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE"`

	// SMTP configures the e-mail fallback for failed publishes. Fields are
	// read from SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM,
	// SMTP_TO and SMTP_ENCRYPTION.
	SMTP SMTPConfig
}

// SMTPConfig configures the e-mail fallback. It is disabled when Host is empty.
type SMTPConfig struct {
	Host       string `envconfig:"HOST"`
	Port       int    `envconfig:"PORT" default:"587"`
	Username   string `envconfig:"USERNAME"`
	Password   string `envconfig:"PASSWORD"`
	FromAddr   string `envconfig:"FROM"`
	ToAddrs    string `envconfig:"TO"`
	Encryption string `envconfig:"ENCRYPTION" default:"starttls"` // "none", "starttls", "ssl_tls"
}

// Enabled reports whether enough is configured to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.FromAddr != "" && s.ToAddrs != ""
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.ntfy-go if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".ntfy-go")
	}
	if c.SchedulesFile == "" {
		c.SchedulesFile = filepath.Join(c.DataDir, "schedules.yaml")
	}
	return &c, nil
}

// Auth resolves the configured credential. A token wins over a username.
func (c *AppConfig) Auth() (dispatcher.Auth, bool) {
	switch {
	case c.Token != "":
		return dispatcher.Token(c.Token), true
	case c.Username != "":
		return dispatcher.Credentials(c.Username, c.Password), true
	}
	return dispatcher.Auth{}, false
}

// DispatcherBuilder returns a builder carrying the server URL, credential,
// proxy and timeout from this config.
func (c *AppConfig) DispatcherBuilder(logger *slog.Logger) dispatcher.Builder {
	b := dispatcher.NewBuilder(c.ServerURL).
		WithHTTPClient(&http.Client{Timeout: c.Timeout}).
		WithUserAgent(build.UserAgent()).
		WithLogger(logger)
	if auth, ok := c.Auth(); ok {
		b = b.WithAuth(auth)
	}
	if c.Proxy != "" {
		b = b.WithProxy(c.Proxy)
	}
	return b
}

// AllowedOrigins splits CORSOrigins. Empty means no cross-origin access.
func (c *AppConfig) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory.
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DatabaseFile returns the path to the publish log database.
func (c *AppConfig) DatabaseFile() string {
	return filepath.Join(c.DataDir, "ntfy.db")
}
